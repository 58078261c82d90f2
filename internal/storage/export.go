package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run      RunMetadata `json:"run"`
	Steps    int         `json:"steps"`
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls []float64   `json:"controls"`
}

// ExportJSON writes a saved run's metadata and trace as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:      *meta,
		Steps:    len(tr.Times),
		Times:    tr.Times,
		States:   tr.States,
		Controls: tr.Controls,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies a saved run's trace.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	file, err := os.Open(s.TracePath(runID))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}
