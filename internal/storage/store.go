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
	"strings"
	"time"

	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/sim"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
	samplesFile  = "samples.csv"
)

var ErrNoSamples = errors.New("run has no controller samples")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// PIDSettings is the tuning a run was started with.
type PIDSettings struct {
	Kp           float64 `json:"kp"`
	Ki           float64 `json:"ki"`
	Kd           float64 `json:"kd"`
	Direction    string  `json:"direction"`
	Mode         string  `json:"mode"`
	SamplePeriod string  `json:"sample_period"`
	OutMin       float64 `json:"out_min"`
	OutMax       float64 `json:"out_max"`
	SetPoint     float64 `json:"set_point"`
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Plant      string             `json:"plant"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Backend    string             `json:"backend,omitempty"`
	Noise      float64            `json:"noise,omitempty"`
	PID        *PIDSettings       `json:"pid,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Trace is the simulation record: the full state at every step and the
// controller output applied from that step.
type Trace struct {
	Times    []float64
	States   [][]float64
	Controls []float64
}

// Save writes a run. ID and Timestamp are filled in if empty; samples may
// be nil for open-loop runs.
func (s *Store) Save(meta RunMetadata, result *sim.Result, samples []control.Sample) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Plant, meta.Timestamp.UnixNano())
	}
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, traceFile), traceRows(result)); err != nil {
		return "", err
	}
	if len(samples) > 0 {
		if err := writeCSV(filepath.Join(runDir, samplesFile), sampleRows(samples)); err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

// List returns saved runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

// TracePath is the CSV file holding a run's trace.
func (s *Store) TracePath(runID string) string {
	return filepath.Join(s.baseDir, runID, traceFile)
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	records, err := readCSV(s.TracePath(runID))
	if err != nil {
		return nil, err
	}

	tr := &Trace{}
	if len(records) < 2 {
		return tr, nil
	}

	header := records[0]
	stateCols := 0
	hasControl := false
	for _, h := range header[1:] {
		switch {
		case strings.HasPrefix(h, "x"):
			stateCols++
		case h == "u":
			hasControl = true
		}
	}

	for i, record := range records[1:] {
		vals, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", traceFile, i+2, err)
		}
		if len(vals) < 1+stateCols {
			return nil, fmt.Errorf("%s line %d: expected %d columns, got %d", traceFile, i+2, 1+stateCols, len(vals))
		}
		tr.Times = append(tr.Times, vals[0])
		tr.States = append(tr.States, vals[1:1+stateCols])
		if hasControl && len(vals) > 1+stateCols {
			tr.Controls = append(tr.Controls, vals[1+stateCols])
		}
	}

	return tr, nil
}

func (s *Store) LoadSamples(runID string) ([]control.Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSamples
		}
		return nil, err
	}

	samples := make([]control.Sample, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue
		}
		v, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", samplesFile, i+1, err)
		}
		if len(v) != 8 {
			return nil, fmt.Errorf("%s line %d: expected 8 columns, got %d", samplesFile, i+1, len(v))
		}
		samples = append(samples, control.Sample{
			Time: v[0], Measurement: v[1], SetPoint: v[2], Output: v[3],
			Error: v[4], P: v[5], I: v[6], D: v[7],
		})
	}
	return samples, nil
}

func traceRows(result *sim.Result) [][]string {
	if len(result.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	hasControl := len(result.Controls) > 0 && len(result.Controls[0]) > 0
	if hasControl {
		header = append(header, "u")
	}

	rows := make([][]string, 0, len(result.States)+1)
	rows = append(rows, header)
	for i := range result.States {
		row := []string{formatFloat(result.Times[i])}
		for _, val := range result.States[i] {
			row = append(row, formatFloat(val))
		}
		if hasControl {
			// the final state has no control applied after it
			u := ""
			if i < len(result.Controls) && len(result.Controls[i]) > 0 {
				u = formatFloat(result.Controls[i][0])
			}
			row = append(row, u)
		}
		rows = append(rows, row)
	}
	return rows
}

func sampleRows(samples []control.Sample) [][]string {
	rows := make([][]string, 0, len(samples)+1)
	rows = append(rows, []string{"time", "measurement", "set_point", "output", "error", "p", "i", "d"})
	for _, s := range samples {
		rows = append(rows, []string{
			formatFloat(s.Time),
			formatFloat(s.Measurement),
			formatFloat(s.SetPoint),
			formatFloat(s.Output),
			formatFloat(s.Error),
			formatFloat(s.P),
			formatFloat(s.I),
			formatFloat(s.D),
		})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseRow(record []string) ([]float64, error) {
	vals := make([]float64, 0, len(record))
	for _, field := range record {
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Sync()
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
