// Package analysis extracts frequency content from recorded run series.
//
// A bouncing ensemble with restitution close to one is nearly periodic; the
// dominant period of its max-speed series is the bounce period of the
// fastest particle:
//
//	period, ok := analysis.DominantPeriod(res.Series(sim.Speed), cfg.Dt)
package analysis
