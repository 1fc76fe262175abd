package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/itohio/thermod/pkg/config"
)

var (
	ErrCalculation       = errors.New("calculation failed")
	ErrUnsupportedType   = errors.New("unsupported sensor type")
	ErrInvalidDefinition = errors.New("invalid sensor definition")
	ErrNoSensors         = errors.New("no valid sensor definition found")
)

// Callendar-Van Dusen coefficients for platinum above 0 °C.
const (
	ptCoeffA = 3.9083e-3
	ptCoeffB = -5.7750e-7
)

const (
	kelvinOffset    = 273.15
	kelvinOffsetOld = 273.0
)

// Convert turns a conditioned ADC value into the physical quantity of def.
// rMeasurement is the reference resistor of the channel's divider.
func Convert(def Definition, adc, rMeasurement float64, dev config.Device) (float64, error) {
	var (
		value float64
		err   error
	)

	switch m := def.Model.(type) {
	case Voltage:
		value = voltage(adc, dev)
	case Resistance:
		value, err = resistance(adc, rMeasurement, dev)
	case NTC:
		value, err = ntc(m, adc, rMeasurement, dev)
	case NTCOld:
		value, err = ntcOld(m, adc, rMeasurement, dev)
	case RTDPt:
		value, err = rtdPt(m, adc, rMeasurement, dev)
	case PolyU:
		value = polynomial(m.Coeffs, voltage(adc, dev))
	case PolyR:
		var r float64
		r, err = resistance(adc, rMeasurement, dev)
		if err == nil {
			value = polynomial(m.Coeffs, r)
		}
	case Unsupported:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, m.Type)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, def.Model)
	}

	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %s result is not finite", ErrCalculation, def.Kind())
	}

	return value, nil
}

// voltage calculates the voltage measured by an ADC channel.
func voltage(adc float64, dev config.Device) float64 {
	return adc * dev.RefVoltage / float64(dev.ADCSteps)
}

// resistance calculates the sensor resistance of the divider. Boards after
// v1 put the sensor on the other leg, so the reading is inverted first.
func resistance(adc, rMeasurement float64, dev config.Device) (float64, error) {
	steps := float64(dev.ADCSteps)
	if dev.HardwareVersion != config.HardwareV1 {
		adc = steps - 1 - adc
	}
	if adc == 0 {
		return 0, fmt.Errorf("%w: division by zero (adc=%v)", ErrCalculation, adc)
	}

	return rMeasurement * (steps/adc - 1), nil
}

// logRatio returns ln(r/rNominal).
func logRatio(r, rNominal float64) (float64, error) {
	if rNominal == 0 {
		return 0, fmt.Errorf("%w: nominal resistance is zero", ErrCalculation)
	}
	ratio := r / rNominal
	if !(ratio > 0) {
		return 0, fmt.Errorf("%w: log of non-positive ratio %v", ErrCalculation, ratio)
	}
	return math.Log(ratio), nil
}

func reciprocal(x float64) (float64, error) {
	if x == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrCalculation)
	}
	return 1 / x, nil
}

func ntc(m NTC, adc, rMeasurement float64, dev config.Device) (float64, error) {
	r, err := resistance(adc, rMeasurement, dev)
	if err != nil {
		return 0, err
	}
	v, err := logRatio(r, m.RNominal)
	if err != nil {
		return 0, err
	}

	inv, err := reciprocal(m.A + m.B*v + m.C*math.Pow(v, 2) + m.D*math.Pow(v, 3))
	if err != nil {
		return 0, err
	}
	return inv - kelvinOffset, nil
}

func ntcOld(m NTCOld, adc, rMeasurement float64, dev config.Device) (float64, error) {
	r, err := resistance(adc, rMeasurement, dev)
	if err != nil {
		return 0, err
	}
	v, err := logRatio(r, m.RNominal)
	if err != nil {
		return 0, err
	}

	inv, err := reciprocal(m.A + m.B*v + m.C*math.Pow(v, 2))
	if err != nil {
		return 0, err
	}
	return inv - kelvinOffsetOld, nil
}

// rtdPt inverts R = R0 * (1 + A*T + B*T^2).
func rtdPt(m RTDPt, adc, rMeasurement float64, dev config.Device) (float64, error) {
	r, err := resistance(adc, rMeasurement, dev)
	if err != nil {
		return 0, err
	}
	if m.RNominal == 0 {
		return 0, fmt.Errorf("%w: nominal resistance is zero", ErrCalculation)
	}

	radicand := r/(m.RNominal*ptCoeffB) +
		math.Pow(ptCoeffA, 2)/(4*math.Pow(ptCoeffB, 2)) -
		1/ptCoeffB
	if radicand < 0 {
		return 0, fmt.Errorf("%w: negative radicand %v", ErrCalculation, radicand)
	}

	return -1*math.Sqrt(radicand) - ptCoeffA/(2*ptCoeffB), nil
}

func polynomial(coeffs [5]float64, x float64) float64 {
	return coeffs[0] +
		coeffs[1]*x +
		coeffs[2]*math.Pow(x, 2) +
		coeffs[3]*math.Pow(x, 3) +
		coeffs[4]*math.Pow(x, 4)
}
