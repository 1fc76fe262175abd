package sensor

// Kind is the type tag of a sensor definition.
type Kind string

const (
	KindVoltage    Kind = "voltage"
	KindResistance Kind = "resistance"
	KindNTC        Kind = "ntc"
	KindNTCOld     Kind = "ntc_old"
	KindRTDPt      Kind = "rtd_pt"
	KindPolyU      Kind = "poly_u"
	KindPolyR      Kind = "poly_r"
)

// Kinds returns the sensor types this engine has a formula for.
func Kinds() []Kind {
	return []Kind{
		KindVoltage,
		KindResistance,
		KindNTC,
		KindNTCOld,
		KindRTDPt,
		KindPolyU,
		KindPolyR,
	}
}

// Model is the conversion model of a sensor. The set of implementations is
// closed; Convert switches over all of them.
type Model interface {
	Kind() Kind
	model()
}

// Voltage reports the voltage at the ADC input.
type Voltage struct{}

// Resistance reports the resistance of the sensor leg of the divider.
type Resistance struct{}

// NTC is a thermistor described by a cubic Steinhart-Hart polynomial.
type NTC struct {
	RNominal   float64
	A, B, C, D float64
}

// NTCOld is the quadratic thermistor formula of older firmware. It uses a
// -273.0 offset and must stay that way for existing sensor files.
type NTCOld struct {
	RNominal float64
	A, B, C  float64
}

// RTDPt is a platinum RTD. ROffset is part of the catalog record but does
// not enter the formula.
type RTDPt struct {
	RNominal float64
	ROffset  float64
}

// PolyU maps the input voltage through a quartic polynomial; Coeffs[i] is
// the coefficient of u^i.
type PolyU struct {
	Coeffs [5]float64
}

// PolyR maps the sensor resistance through a quartic polynomial; Coeffs[i]
// is the coefficient of r^i.
type PolyR struct {
	Coeffs [5]float64
}

// Unsupported is a catalog type with no formula in this engine.
type Unsupported struct {
	Type string
}

func (Voltage) Kind() Kind    { return KindVoltage }
func (Resistance) Kind() Kind { return KindResistance }
func (NTC) Kind() Kind        { return KindNTC }
func (NTCOld) Kind() Kind     { return KindNTCOld }
func (RTDPt) Kind() Kind      { return KindRTDPt }
func (PolyU) Kind() Kind      { return KindPolyU }
func (PolyR) Kind() Kind      { return KindPolyR }
func (u Unsupported) Kind() Kind {
	return Kind(u.Type)
}

func (Voltage) model()     {}
func (Resistance) model()  {}
func (NTC) model()         {}
func (NTCOld) model()      {}
func (RTDPt) model()       {}
func (PolyU) model()       {}
func (PolyR) model()       {}
func (Unsupported) model() {}

// Definition is a named sensor model from the catalog.
type Definition struct {
	Name  string
	Unit  string
	Model Model
}

// Kind returns the type tag of the definition's model.
func (d Definition) Kind() Kind {
	if d.Model == nil {
		return ""
	}
	return d.Model.Kind()
}

// BoundaryChecked reports whether readings near the ADC rails mean a shorted
// or open sensor for this kind.
func (d Definition) BoundaryChecked() bool {
	switch d.Model.(type) {
	case NTC, RTDPt:
		return true
	}
	return false
}

// Supported reports whether Convert has a formula for the definition.
func (d Definition) Supported() bool {
	switch d.Model.(type) {
	case nil, Unsupported:
		return false
	}
	return true
}
