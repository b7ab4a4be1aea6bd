package main

import (
	"fmt"
	"path/filepath"

	"github.com/san-kum/particlelab/internal/figure"
	"github.com/san-kum/particlelab/internal/storage"
	"github.com/san-kum/particlelab/internal/sweep"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
)

func renderFigures(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	series := make([]figure.Series, 0, len(args))
	for _, runID := range args {
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		records, err := st.LoadRecords(runID)
		if err != nil {
			return err
		}
		series = append(series, figure.Series{Label: seriesLabel(meta), Records: records})
	}

	for _, q := range figure.Quantities() {
		p, err := figure.TimeSeries(q.Label+" vs time", q, series)
		if err != nil {
			return err
		}
		if err := save(p, filepath.Join(figureOut, q.Name+"_vs_time.png")); err != nil {
			return err
		}
	}
	fmt.Printf("figures written to %s\n", figureOut)
	return nil
}

func seriesLabel(meta *storage.RunMetadata) string {
	if meta.SweepParam != "" {
		return fmt.Sprintf("%s=%g", meta.SweepParam, meta.SweepValue)
	}
	return fmt.Sprintf("%s dt=%g c=%g e=%g", meta.Name, meta.Dt, meta.Drag, meta.Restitution)
}

// sweepFigures writes the log-log drift and penetration chart, the alpha
// scatter and one time series overlay per recorded quantity.
func sweepFigures(dir, name string, points []sweep.Point) error {
	if p, err := figure.SweepLogLog(name+": drift rate and penetration", points); err == nil {
		if err := save(p, filepath.Join(dir, name+"_loglog.png")); err != nil {
			return err
		}
	} else {
		logger.Warn("log-log figure skipped", zap.Error(err))
	}

	if p, err := figure.AlphaScatter(name+": penetration vs alpha", points); err == nil {
		if err := save(p, filepath.Join(dir, name+"_alpha.png")); err != nil {
			return err
		}
	} else {
		logger.Warn("alpha figure skipped", zap.Error(err))
	}

	series := make([]figure.Series, len(points))
	for i, pt := range points {
		series[i] = figure.Series{Label: fmt.Sprintf("%s=%g", pt.Param, pt.Value), Records: pt.Result.Records}
	}
	for _, q := range figure.Quantities() {
		p, err := figure.TimeSeries(name+": "+q.Label, q, series)
		if err != nil {
			return err
		}
		if err := save(p, filepath.Join(dir, fmt.Sprintf("%s_%s_vs_time.png", name, q.Name))); err != nil {
			return err
		}
	}
	return nil
}

func save(p *plot.Plot, path string) error {
	if err := figure.SavePNG(p, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	logger.Debug("figure saved", zap.String("path", path))
	return nil
}
