package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

var ErrNoRun = errors.New("run not found")

// Header is the states.csv column layout.
var Header = []string{"time", "sx", "sy", "sz", "lmx", "lmy", "lmz", "amx", "amy", "amz", "mass", "stage"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a run was produced.
type RunInfo struct {
	Name     string
	Preset   string
	Stepper  string
	Dt       float64
	Duration float64
	Params   map[string]float64
}

type RunMetadata struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Preset    string              `json:"preset,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Dt        float64             `json:"dt"`
	Duration  float64             `json:"duration"`
	Stepper   string              `json:"stepper"`
	Ticks     int                 `json:"ticks"`
	Failures  int                 `json:"failures"`
	Params    map[string]float64  `json:"params,omitempty"`
	Events    []dynamo.StageEvent `json:"events"`
	Metrics   map[string]float64  `json:"metrics"`
}

func (s *Store) Save(info RunInfo, result *dynamo.Result) (string, error) {
	name := info.Name
	if name == "" {
		name = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Preset:    info.Preset,
		Timestamp: now,
		Dt:        info.Dt,
		Duration:  info.Duration,
		Stepper:   info.Stepper,
		Ticks:     result.TicksTaken,
		Failures:  result.Failures,
		Params:    info.Params,
		Events:    result.Events,
		Metrics:   result.Metrics,
	}
	if meta.Events == nil {
		meta.Events = []dynamo.StageEvent{}
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Samples); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns archived runs, oldest first. Directories without readable
// metadata are skipped.
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

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrNoRun)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s metadata: %w", runID, err)
	}

	return &meta, nil
}

// LoadSamples reads states.csv back. Only the archived columns are filled;
// derived fields such as altitude stay zero.
func (s *Store) LoadSamples(runID string) ([]dynamo.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrNoRun)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []dynamo.Sample{}, nil
	}

	samples := make([]dynamo.Sample, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != len(Header) {
			continue
		}

		row := make([]float64, len(record))
		ok := true
		for j, field := range record {
			row[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
		}
		if ok {
			samples = append(samples, fromRow(row))
		}
	}

	return samples, nil
}

func fromRow(row []float64) dynamo.Sample {
	return dynamo.Sample{
		Time:     row[0],
		Position: [3]float64{row[1], row[2], row[3]},
		Momentum: [3]float64{row[4], row[5], row[6]},
		Angular:  [3]float64{row[7], row[8], row[9]},
		Mass:     row[10],
		Stage:    int(row[11]),
	}
}
