// Package dense reads and writes the dense character-grid wafer map layout
// used by the AOI, CP and FAB stations and by the mapEx / wafermap outputs.
//
// A dense file is an optional block of "Key: Value" header lines followed by
// the map section. The map section starts at the first line containing one
// of the anchor tokens ".*", ".S" or "[MAP]:"; every non-blank line from
// there on is one grid row, one cell per character. When no line carries an
// anchor the whole file is map data.
//
//	Device: S1M032120B
//	Total Tested: 805
//	Yield: 89.19%
//
//	..*1234567
//	..S1111...
//	.111311...
package dense

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// anchors mark the first line of the map section.
var anchors = []string{".*", ".S", "[MAP]:"}

// Map is a decoded dense file.
type Map struct {
	Header *wafer.Header
	Grid   wafer.Grid
}

// Decode parses dense text into a header and grid.
// It fails with FORMAT_ERROR only when text is empty.
func Decode(text []byte) (*Map, error) {
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, errors.New(errors.ErrCodeFormat, "dense input is empty")
	}

	lines := splitLines(text)
	start := mapStart(lines)

	header := wafer.NewHeader()
	for _, line := range lines[:start] {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ": ")
		if !ok {
			continue
		}
		header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	var grid wafer.Grid
	for _, line := range lines[start:] {
		row := strings.TrimSpace(line)
		if row == "" {
			continue
		}
		grid = append(grid, []wafer.Cell(row))
	}

	return &Map{Header: header, Grid: grid}, nil
}

// Read decodes a dense map from r.
func Read(r io.Reader) (*Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "read dense input")
	}
	return Decode(data)
}

// Encode renders header and grid in the dense layout. The four statistics
// keys present in header are rewritten from stats; all other keys keep their
// values and order. A blank line separates the header from the rows.
func Encode(header *wafer.Header, grid wafer.Grid, stats wafer.Stats) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, header, grid, stats)
	return buf.Bytes()
}

// Write streams the dense encoding of header and grid to w.
func Write(w io.Writer, header *wafer.Header, grid wafer.Grid, stats wafer.Stats) error {
	bw := bufio.NewWriter(w)
	for _, key := range header.Keys() {
		value, _ := header.Get(key)
		if v, ok := stats.Value(key); ok {
			value = v
		}
		fmt.Fprintf(bw, "%s: %s\n", key, value)
	}
	bw.WriteString("\n")
	for _, row := range grid {
		bw.WriteString(string(row))
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// mapStart returns the index of the first line holding an anchor token,
// or 0 when there is none.
func mapStart(lines []string) int {
	for i, line := range lines {
		for _, a := range anchors {
			if strings.Contains(line, a) {
				return i
			}
		}
	}
	return 0
}

func splitLines(text []byte) []string {
	s := strings.ReplaceAll(string(text), "\r\n", "\n")
	return strings.Split(s, "\n")
}
