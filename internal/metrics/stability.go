package metrics

import (
	"math"

	"github.com/san-kum/particlelab/internal/sim"
)

// PeakSpeed is the largest MaxSpeed seen over a run, the characteristic
// speed of the stability parameter.
type PeakSpeed struct {
	name string
	peak float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{name: "peak_speed"}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(r sim.Record) {
	p.peak = math.Max(p.peak, r.MaxSpeed)
}

func (p *PeakSpeed) Value() float64 { return p.peak }

func (p *PeakSpeed) Reset() { p.peak = 0 }

// Penetration is the deepest pre-correction penetration over a run.
type Penetration struct {
	name  string
	depth float64
}

func NewPenetration() *Penetration {
	return &Penetration{name: "max_penetration"}
}

func (p *Penetration) Name() string { return p.name }

func (p *Penetration) Observe(r sim.Record) {
	p.depth = math.Max(p.depth, r.MaxPenetration)
}

func (p *Penetration) Value() float64 { return p.depth }

func (p *Penetration) Reset() { p.depth = 0 }

// Alpha is the dimensionless stability parameter |g_y|*dt/v_char. A run in
// which nothing moved (v_char == 0) has alpha 0.
func Alpha(gravityY, dt, vChar float64) float64 {
	if vChar == 0 {
		return 0
	}
	return math.Abs(gravityY) * dt / vChar
}
