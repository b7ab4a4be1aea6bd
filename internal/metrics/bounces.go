package metrics

import "github.com/san-kum/particlelab/internal/sim"

// Bounces counts ground hits over a run. The count depends strongly on dt,
// so it is informative only at a fixed timestep.
type Bounces struct {
	name  string
	total int
}

func NewBounces() *Bounces {
	return &Bounces{name: "bounces"}
}

func (b *Bounces) Name() string { return b.name }

func (b *Bounces) Observe(r sim.Record) {
	b.total += r.BounceCount
}

func (b *Bounces) Value() float64 { return float64(b.total) }

func (b *Bounces) Reset() { b.total = 0 }
