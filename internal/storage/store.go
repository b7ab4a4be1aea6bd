package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
)

const (
	metadataFile = "metadata.json"
	recordsFile  = "records.csv"
)

var recordHeader = []string{"step", "time", "total_energy", "max_speed", "max_penetration"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Timestamp    time.Time       `json:"timestamp"`
	Seed         int64           `json:"seed"`
	Particles    int             `json:"particles"`
	Gravity      [2]float64      `json:"gravity"`
	Dt           float64         `json:"dt"`
	Steps        int             `json:"steps"`
	Drag         float64         `json:"drag"`
	Restitution  float64         `json:"restitution"`
	TrackBounces bool            `json:"track_bounces"`
	Metrics      metrics.Values  `json:"metrics"`
	Summary      metrics.Summary `json:"summary"`
	SweepParam   string          `json:"sweep_param,omitempty"`
	SweepValue   float64         `json:"sweep_value,omitempty"`
}

// Config rebuilds the run configuration recorded in m.
func (m *RunMetadata) Config() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Gravity.X, cfg.Gravity.Y = m.Gravity[0], m.Gravity[1]
	cfg.Dt = m.Dt
	cfg.Steps = m.Steps
	cfg.Drag = m.Drag
	cfg.Restitution = m.Restitution
	cfg.TrackBounces = m.TrackBounces
	return cfg
}

// RunInfo identifies a run being saved.
type RunInfo struct {
	Name       string
	Seed       int64
	Particles  int
	SweepParam string
	SweepValue float64
}

// Save writes the metadata and per-step records of result into a new run
// directory and returns its ID. Non-finite values from diverged runs are
// stored as-is. On failure the run directory is removed.
func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", info.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	cfg := result.Config
	meta := RunMetadata{
		ID:           runID,
		Name:         info.Name,
		Timestamp:    now,
		Seed:         info.Seed,
		Particles:    info.Particles,
		Gravity:      [2]float64{cfg.Gravity.X, cfg.Gravity.Y},
		Dt:           cfg.Dt,
		Steps:        cfg.Steps,
		Drag:         cfg.Drag,
		Restitution:  cfg.Restitution,
		TrackBounces: cfg.TrackBounces,
		Metrics:      result.Metrics,
		Summary:      metrics.Summarize(result.Records, cfg),
		SweepParam:   info.SweepParam,
		SweepValue:   info.SweepValue,
	}

	if err := writeRun(runDir, &meta, result.Records); err != nil {
		os.RemoveAll(runDir)
		return "", fmt.Errorf("save run %s: %w", runID, err)
	}
	return runID, nil
}

func writeRun(runDir string, meta *RunMetadata, records []sim.Record) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), append(data, '\n'), 0644); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, recordsFile))
	if err != nil {
		return err
	}
	if err := WriteCSV(csvFile, records, meta.TrackBounces); err != nil {
		csvFile.Close()
		return err
	}
	return csvFile.Close()
}

// WriteCSV writes one row per record. The bounce_count column is present only
// when bounces is set.
func WriteCSV(out io.Writer, records []sim.Record, bounces bool) error {
	w := csv.NewWriter(out)

	header := recordHeader
	if bounces {
		header = append(append([]string(nil), recordHeader...), "bounce_count")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Step),
			formatFloat(r.Time),
			formatFloat(r.TotalEnergy),
			formatFloat(r.MaxSpeed),
			formatFloat(r.MaxPenetration),
		}
		if bounces {
			row = append(row, strconv.Itoa(r.BounceCount))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadRecords(runID string) ([]sim.Record, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, recordsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return records, nil
}

// ReadCSV parses rows written by WriteCSV, with or without bounce counts.
func ReadCSV(in io.Reader) ([]sim.Record, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []sim.Record{}, nil
	}

	records := make([]sim.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < len(recordHeader) {
			return nil, fmt.Errorf("line %d: %d fields, want at least %d", i+2, len(row), len(recordHeader))
		}

		var rec sim.Record
		if rec.Step, err = strconv.Atoi(row[0]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		vals := make([]float64, 4)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(row[j+1], 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+2, err)
			}
		}
		rec.Time, rec.TotalEnergy, rec.MaxSpeed, rec.MaxPenetration = vals[0], vals[1], vals[2], vals[3]

		if len(row) > len(recordHeader) {
			if rec.BounceCount, err = strconv.Atoi(row[len(recordHeader)]); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+2, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
