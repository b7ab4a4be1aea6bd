package sweep_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/particlelab/internal/experiment"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/sweep"
)

var _ = Describe("Runner", func() {
	var (
		ctx     context.Context
		runner  *sweep.Runner
		initial *sim.Ensemble
		base    sim.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = sweep.NewRunner(nil, nil, 2)

		var err error
		initial, err = experiment.UniformBox(42, 10, 10)
		Expect(err).NotTo(HaveOccurred())

		base = sim.DefaultConfig()
		base.Steps = 300
	})

	Describe("Sweep", func() {
		It("returns one point per value in input order", func() {
			values := []float64{0.02, 0.001, 0.01, 0.005}
			points, err := runner.Sweep(ctx, initial, base, "dt", values)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(len(values)))

			for i, p := range points {
				Expect(p.Param).To(Equal("dt"))
				Expect(p.Value).To(Equal(values[i]))
				Expect(p.Result.Config.Dt).To(Equal(values[i]))
				Expect(p.Result.Records).To(HaveLen(base.Steps))
			}
		})

		It("matches an isolated run bit for bit", func() {
			points, err := runner.Sweep(ctx, initial, base, "restitution", []float64{0.3, 0.6, 0.9})
			Expect(err).NotTo(HaveOccurred())

			cfg := base
			cfg.Restitution = 0.6
			direct, err := sim.Run(ctx, initial, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(points[1].Result.Records).To(Equal(direct.Records))
			Expect(points[1].Result.Final).To(Equal(direct.Final))
		})

		It("leaves the shared initial conditions untouched", func() {
			before := initial.Clone()
			_, err := runner.Sweep(ctx, initial, base, "drag", []float64{0.05, 0.1, 0.2, 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(initial).To(Equal(before))
		})

		It("summarizes every point", func() {
			points, err := runner.Sweep(ctx, initial, base, "dt", []float64{0.01})
			Expect(err).NotTo(HaveOccurred())

			p := points[0]
			Expect(p.Summary).To(Equal(metrics.Summarize(p.Result.Records, p.Result.Config)))
			Expect(p.Result.Metrics).To(HaveKey("energy_drift"))
			Expect(p.Result.Metrics["energy_drift"]).To(Equal(p.Summary.EnergyDrift))
		})

		It("slows the fall as drag grows", func() {
			base.Steps = 500
			points, err := runner.Sweep(ctx, initial, base, "drag", []float64{0.05, 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(points[1].Summary.PeakSpeed).To(BeNumerically("<", points[0].Summary.PeakSpeed))
		})

		It("rejects invalid sweep values before running", func() {
			_, err := runner.Sweep(ctx, initial, base, "dt", []float64{0.01, 0})
			Expect(err).To(MatchError(sim.ErrInvalidTimestep))
		})

		It("rejects unknown parameters", func() {
			_, err := runner.Sweep(ctx, initial, base, "mass", []float64{1})
			Expect(err).To(MatchError(ContainSubstring("unknown parameter")))
		})

		It("rejects an empty value list", func() {
			_, err := runner.Sweep(ctx, initial, base, "dt", nil)
			Expect(err).To(HaveOccurred())
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := runner.Sweep(canceled, initial, base, "dt", []float64{0.01, 0.02})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Grid", func() {
		It("runs the cartesian product", func() {
			points, err := runner.Grid(ctx, initial, base,
				[]string{"drag", "restitution"},
				[][]float64{{0.1, 0.2}, {0.5, 0.7, 0.9}},
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(6))

			Expect(points[0].Params).To(Equal(map[string]float64{"drag": 0.1, "restitution": 0.5}))
			Expect(points[5].Params).To(Equal(map[string]float64{"drag": 0.2, "restitution": 0.9}))
			Expect(points[4].Result.Config.Drag).To(Equal(0.2))
			Expect(points[4].Result.Config.Restitution).To(Equal(0.7))
		})

		It("rejects mismatched names and ranges", func() {
			_, err := runner.Grid(ctx, initial, base, []string{"dt"}, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Selection", func() {
	point := func(value, rate, drift float64) sweep.Point {
		return sweep.Point{
			Value:   value,
			Result:  &sim.Result{Metrics: map[string]float64{"energy_drift": drift}},
			Summary: metrics.Summary{DriftRate: rate},
		}
	}

	points := []sweep.Point{
		point(0.001, -0.01, -0.5),
		point(0.01, -0.1, -3),
		point(0.1, -2, 1),
	}

	It("finds the largest value within tolerance", func() {
		v, ok := sweep.Critical(points, 0.5)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(0.01))
	})

	It("reports when no value qualifies", func() {
		_, ok := sweep.Critical(points, 1e-6)
		Expect(ok).To(BeFalse())
	})

	It("picks the point minimising a metric", func() {
		best, ok := sweep.Best(points, "energy_drift")
		Expect(ok).To(BeTrue())
		Expect(best.Value).To(Equal(0.01))

		_, ok = sweep.Best(points, "missing")
		Expect(ok).To(BeFalse())
	})
})
