package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Document is the JSON form of one wafer's overlay result.
type Document struct {
	WaferID   string              `json:"wafer_id,omitempty"`
	Name      string              `json:"name,omitempty"`
	Policy    string              `json:"policy,omitempty"`
	Order     []string            `json:"order,omitempty"`
	Stats     wafer.Stats         `json:"stats"`
	Composite wafer.Grid          `json:"composite"`
	Changes   overlay.ChangeTrace `json:"changes"`
	Excluded  []overlay.Exclusion `json:"excluded,omitempty"`
}

// FromResult builds a document from a merge result.
func FromResult(waferID, name string, res *overlay.Result) Document {
	changes := res.Trace
	if changes == nil {
		changes = overlay.ChangeTrace{}
	}
	return Document{
		WaferID:   waferID,
		Name:      name,
		Policy:    res.Policy,
		Order:     res.Order,
		Stats:     wafer.ComputeStats(res.Composite),
		Composite: res.Composite,
		Changes:   changes,
		Excluded:  res.Excluded,
	}
}

// WriteJSON encodes doc as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes doc to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(doc, f)
}
