package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float64 whose JSON form carries NaN and the infinities as the
// strings "NaN", "+Inf" and "-Inf". Diverged runs produce such values and
// must still be storable.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("metrics: invalid float %q", s)
		}
		*f = Float(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Values is a named set of metric values with a JSON form that survives
// non-finite entries.
type Values map[string]float64

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make(map[string]Float, len(v))
	for k, x := range v {
		out[k] = Float(x)
	}
	return json.Marshal(out)
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var in map[string]Float
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*v = nil
		return nil
	}
	out := make(Values, len(in))
	for k, x := range in {
		out[k] = float64(x)
	}
	*v = out
	return nil
}

type summaryJSON struct {
	InitialEnergy  Float `json:"initial_energy"`
	FinalEnergy    Float `json:"final_energy"`
	EnergyDrift    Float `json:"energy_drift"`
	DriftRate      Float `json:"energy_drift_rate"`
	MaxPenetration Float `json:"max_penetration"`
	PeakSpeed      Float `json:"peak_speed"`
	Alpha          Float `json:"alpha"`
	Bounces        int   `json:"bounces"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		InitialEnergy:  Float(s.InitialEnergy),
		FinalEnergy:    Float(s.FinalEnergy),
		EnergyDrift:    Float(s.EnergyDrift),
		DriftRate:      Float(s.DriftRate),
		MaxPenetration: Float(s.MaxPenetration),
		PeakSpeed:      Float(s.PeakSpeed),
		Alpha:          Float(s.Alpha),
		Bounces:        s.Bounces,
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var in summaryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Summary{
		InitialEnergy:  float64(in.InitialEnergy),
		FinalEnergy:    float64(in.FinalEnergy),
		EnergyDrift:    float64(in.EnergyDrift),
		DriftRate:      float64(in.DriftRate),
		MaxPenetration: float64(in.MaxPenetration),
		PeakSpeed:      float64(in.PeakSpeed),
		Alpha:          float64(in.Alpha),
		Bounces:        in.Bounces,
	}
	return nil
}
