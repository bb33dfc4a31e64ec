package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// ReadJSON decodes a result document from r.
//
// ReadJSON returns an error if the JSON is malformed, a cell is not exactly
// one character, or the composite is missing. Stats are recomputed from the
// composite. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decode result document")
	}
	if doc.Composite.Empty() {
		return nil, errors.New(errors.ErrCodeFormat, "result document has no composite map")
	}
	doc.Stats = wafer.ComputeStats(doc.Composite)
	return &doc, nil
}

// ImportJSON reads a JSON file at path and returns the decoded document.
func ImportJSON(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
