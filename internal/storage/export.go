package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
)

type ExportData struct {
	Name         string          `json:"name"`
	Gravity      [2]float64      `json:"gravity"`
	Dt           float64         `json:"dt"`
	Steps        int             `json:"steps"`
	Drag         float64         `json:"drag"`
	Restitution  float64         `json:"restitution"`
	TrackBounces bool            `json:"track_bounces"`
	Records      []exportRecord  `json:"records"`
	Metrics      metrics.Values  `json:"metrics,omitempty"`
	Summary      metrics.Summary `json:"summary"`
}

type exportRecord struct {
	Step           int           `json:"step"`
	Time           float64       `json:"time"`
	TotalEnergy    metrics.Float `json:"total_energy"`
	MaxSpeed       metrics.Float `json:"max_speed"`
	MaxPenetration metrics.Float `json:"max_penetration"`
	BounceCount    *int          `json:"bounce_count,omitempty"`
}

func newExportData(name string, cfg sim.Config, records []sim.Record, runMetrics map[string]float64) ExportData {
	data := ExportData{
		Name:         name,
		Gravity:      [2]float64{cfg.Gravity.X, cfg.Gravity.Y},
		Dt:           cfg.Dt,
		Steps:        len(records),
		Drag:         cfg.Drag,
		Restitution:  cfg.Restitution,
		TrackBounces: cfg.TrackBounces,
		Records:      make([]exportRecord, len(records)),
		Metrics:      runMetrics,
		Summary:      metrics.Summarize(records, cfg),
	}

	for i, r := range records {
		data.Records[i] = exportRecord{
			Step:           r.Step,
			Time:           r.Time,
			TotalEnergy:    metrics.Float(r.TotalEnergy),
			MaxSpeed:       metrics.Float(r.MaxSpeed),
			MaxPenetration: metrics.Float(r.MaxPenetration),
		}
		if cfg.TrackBounces {
			n := r.BounceCount
			data.Records[i].BounceCount = &n
		}
	}
	return data
}

// ExportJSON writes records and their summary as indented JSON. NaN and the
// infinities are written as strings.
func ExportJSON(w io.Writer, name string, cfg sim.Config, records []sim.Record, runMetrics map[string]float64) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(name, cfg, records, runMetrics))
}

func ExportJSONFile(path, name string, cfg sim.Config, records []sim.Record, runMetrics map[string]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportJSON(file, name, cfg, records, runMetrics)
}

// ExportRun exports a stored run to path, or to stdout when path is empty.
func (s *Store) ExportRun(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadRecords(runID)
	if err != nil {
		return err
	}

	if path == "" {
		return ExportJSON(os.Stdout, meta.Name, meta.Config(), records, meta.Metrics)
	}
	return ExportJSONFile(path, meta.Name, meta.Config(), records, meta.Metrics)
}
