package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// WriteCSV writes samples under Header with six decimals.
func WriteCSV(w io.Writer, samples []dynamo.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, s := range samples {
		values := s.Row()
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		row[len(row)-1] = strconv.Itoa(s.Stage)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type ExportData struct {
	ID       string              `json:"id"`
	Stepper  string              `json:"stepper"`
	Dt       float64             `json:"dt"`
	Duration float64             `json:"duration"`
	Steps    int                 `json:"steps"`
	Times    []float64           `json:"times"`
	States   [][]float64         `json:"states"`
	Events   []dynamo.StageEvent `json:"events"`
	Metrics  map[string]float64  `json:"metrics"`
}

// ExportJSON writes an archived run as one JSON document. States follow
// the CSV column order without the time column.
func ExportJSON(w io.Writer, meta *RunMetadata, samples []dynamo.Sample) error {
	data := ExportData{
		ID:       meta.ID,
		Stepper:  meta.Stepper,
		Dt:       meta.Dt,
		Duration: meta.Duration,
		Steps:    len(samples),
		Times:    make([]float64, len(samples)),
		States:   make([][]float64, len(samples)),
		Events:   meta.Events,
		Metrics:  meta.Metrics,
	}

	for i, s := range samples {
		row := s.Row()
		data.Times[i] = row[0]
		data.States[i] = row[1:]
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
