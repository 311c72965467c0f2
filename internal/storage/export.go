package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

type ExportData struct {
	Meta    RunMetadata        `json:"meta"`
	Frames  []dynamo.Frame     `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExportJSON writes a whole run, frames included, as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, frames []dynamo.Frame) error {
	data := ExportData{
		Meta:    meta,
		Frames:  frames,
		Metrics: meta.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
