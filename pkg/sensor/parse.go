package sensor

import (
	"encoding/json"
	"fmt"
)

// Parse builds a Definition from a catalog record (a decoded YAML or JSON
// object). Every record needs name, unit and type; each known type also
// needs the coefficients of its formula. Types without a formula parse into
// Unsupported.
func Parse(rec map[string]any) (Definition, error) {
	var def Definition
	var err error

	if def.Name, err = stringField(rec, "name"); err != nil {
		return Definition{}, err
	}
	if def.Unit, err = stringField(rec, "unit"); err != nil {
		return Definition{}, err
	}
	typ, err := stringField(rec, "type")
	if err != nil {
		return Definition{}, err
	}

	def.Model, err = parseModel(Kind(typ), rec)
	if err != nil {
		return Definition{}, fmt.Errorf("sensor %q: %w", def.Name, err)
	}

	return def, nil
}

func parseModel(kind Kind, rec map[string]any) (Model, error) {
	f := fields{rec: rec}

	switch kind {
	case KindVoltage:
		return Voltage{}, nil
	case KindResistance:
		return Resistance{}, nil
	case KindNTC:
		m := NTC{
			RNominal: f.number("r_nominative"),
			A:        f.number("coeff_a"),
			B:        f.number("coeff_b"),
			C:        f.number("coeff_c"),
			D:        f.number("coeff_d"),
		}
		return m, f.err
	case KindNTCOld:
		m := NTCOld{
			RNominal: f.number("r_nominative"),
			A:        f.number("coeff_a"),
			B:        f.number("coeff_b"),
			C:        f.number("coeff_c"),
		}
		return m, f.err
	case KindRTDPt:
		m := RTDPt{
			RNominal: f.number("r_nominative"),
			ROffset:  f.number("r_offset"),
		}
		return m, f.err
	case KindPolyU:
		m := PolyU{Coeffs: f.coeffs()}
		return m, f.err
	case KindPolyR:
		m := PolyR{Coeffs: f.coeffs()}
		return m, f.err
	case "tc":
		// Thermocouples have a catalog schema but no formula here
		if _, err := stringField(rec, "tc_type"); err != nil {
			return nil, err
		}
		return Unsupported{Type: string(kind)}, nil
	default:
		return Unsupported{Type: string(kind)}, nil
	}
}

// fields collects the first missing or malformed numeric field.
type fields struct {
	rec map[string]any
	err error
}

func (f *fields) number(key string) float64 {
	if f.err != nil {
		return 0
	}
	raw, ok := f.rec[key]
	if !ok {
		f.err = fmt.Errorf("%w: missing %q", ErrInvalidDefinition, key)
		return 0
	}
	v, ok := toFloat(raw)
	if !ok {
		f.err = fmt.Errorf("%w: %q is not a number", ErrInvalidDefinition, key)
		return 0
	}
	return v
}

func (f *fields) coeffs() [5]float64 {
	return [5]float64{
		f.number("coeff_a"),
		f.number("coeff_b"),
		f.number("coeff_c"),
		f.number("coeff_d"),
		f.number("coeff_e"),
	}
}

func stringField(rec map[string]any, key string) (string, error) {
	raw, ok := rec[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidDefinition, key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %q must be a non-empty string", ErrInvalidDefinition, key)
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
