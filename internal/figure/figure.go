// Package figure renders run and sweep results as PNG charts.
package figure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/sweep"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
	dpi    = 150
)

var ErrNoData = errors.New("figure: nothing to plot")

// Quantity selects one recorded value for plotting.
type Quantity struct {
	Name  string
	Label string
	Value func(sim.Record) float64
}

var (
	Energy      = Quantity{"energy", "total energy (J/kg)", sim.Energy}
	Speed       = Quantity{"speed", "max speed (m/s)", sim.Speed}
	Penetration = Quantity{"penetration", "max penetration (m)", sim.Penetration}
)

func Quantities() []Quantity {
	return []Quantity{Energy, Speed, Penetration}
}

// Series is one labelled run.
type Series struct {
	Label   string
	Records []sim.Record
}

// TimeSeries plots q against time for each series, with a legend. Steps whose
// value is NaN or infinite are left out, so a diverged run is drawn up to the
// point where it blew up.
func TimeSeries(title string, q Quantity, series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = q.Label
	p.Add(plotter.NewGrid())

	plotted := 0
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(s.Records))
		for _, r := range s.Records {
			if y := q.Value(r); finite(r.Time, y) {
				pts = append(pts, plotter.XY{X: r.Time, Y: y})
			}
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Label, line)
		plotted++
	}

	if plotted == 0 {
		return nil, ErrNoData
	}
	p.Legend.Top = true
	return p, nil
}

// SweepLogLog plots |drift rate| and max penetration against the swept value
// on log axes. Non-positive values cannot be shown and are skipped.
func SweepLogLog(title string, points []sweep.Point) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = points[0].Param
	p.Y.Label.Text = "magnitude"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	drift := positive(points, func(pt sweep.Point) float64 { return math.Abs(pt.Summary.DriftRate) })
	depth := positive(points, func(pt sweep.Point) float64 { return pt.Summary.MaxPenetration })
	if len(drift) == 0 && len(depth) == 0 {
		return nil, ErrNoData
	}

	for i, s := range []struct {
		label string
		pts   plotter.XYs
	}{
		{"|energy drift rate|", drift},
		{"max penetration", depth},
	} {
		if len(s.pts) == 0 {
			continue
		}
		line, scatter, err := plotter.NewLinePoints(s.pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		scatter.Color = plotutil.Color(i)
		scatter.Shape = plotutil.Shape(i)
		p.Add(line, scatter)
		p.Legend.Add(s.label, line, scatter)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func finite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0)
}

func positive(points []sweep.Point, y func(sweep.Point) float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		v := y(pt)
		if pt.Value > 0 && v > 0 && !math.IsInf(v, 0) {
			pts = append(pts, plotter.XY{X: pt.Value, Y: v})
		}
	}
	return pts
}

// AlphaScatter plots max penetration against the dimensionless step
// alpha = |g|·dt/v_char.
func AlphaScatter(title string, points []sweep.Point) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if !finite(pt.Summary.Alpha, pt.Summary.MaxPenetration) {
			continue
		}
		pts = append(pts, plotter.XY{X: pt.Summary.Alpha, Y: pt.Summary.MaxPenetration})
	}
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "alpha = |g| dt / v_char"
	p.Y.Label.Text = "max penetration (m)"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = plotutil.Color(0)
	p.Add(scatter)
	return p, nil
}

// WritePNG renders p as a PNG image to w.
func WritePNG(p *plot.Plot, w io.Writer) error {
	c := vgimg.NewWith(
		vgimg.UseWH(width, height),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}

func SavePNG(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WritePNG(p, f)
}
