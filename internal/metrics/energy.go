package metrics

import "github.com/san-kum/particlelab/internal/sim"

// EnergyDrift tracks final minus first recorded total energy.
type EnergyDrift struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(r sim.Record) {
	if e.samples == 0 {
		e.initial = r.TotalEnergy
	}
	e.current = r.TotalEnergy
	e.samples++
}

func (e *EnergyDrift) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.current - e.initial
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}

// Drift is the signed change in total energy between the first and last
// record.
func Drift(records []sim.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	return records[len(records)-1].TotalEnergy - records[0].TotalEnergy
}

// DriftRate divides the drift by the simulated time dt*len(records).
func DriftRate(records []sim.Record, dt float64) float64 {
	T := dt * float64(len(records))
	if T == 0 {
		return 0
	}
	return Drift(records) / T
}
