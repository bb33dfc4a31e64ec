package sparse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Marker opens the record section.
const Marker = "[MAP]:"

// SkipBin is the bin number written for 'S' cells.
const SkipBin = 257

// trailerPrefixes are lines inside the record section that carry no die.
var trailerPrefixes = []string{"Total Prober", "Bin", "## END ##"}

// Record is one die of a sparse file in absolute die coordinates.
// Cell is the grid code of Bin; bins without a one-character code
// use wafer.Wide.
type Record struct {
	X    int        `json:"x" msgpack:"x"`
	Y    int        `json:"y" msgpack:"y"`
	Cell wafer.Cell `json:"cell" msgpack:"c"`
	Bin  int        `json:"bin" msgpack:"b"`
}

// Map is a decoded sparse file.
type Map struct {
	// HeaderLines are the lines before the marker, verbatim.
	HeaderLines []string `msgpack:"header"`

	// Records holds the valid records in file order.
	Records []Record `msgpack:"records"`

	// Grid is the normalised dense view of Records.
	Grid wafer.Grid `msgpack:"grid"`

	// Malformed counts record lines whose first three fields were not integers.
	Malformed int `msgpack:"malformed"`
}

// Decode parses sparse text. It never fails on content; records that cannot
// be parsed are counted and dropped.
func Decode(text []byte) *Map {
	m := &Map{}
	inMap := false

	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := strings.TrimRight(sc.Text(), "\r")
		line := strings.TrimSpace(raw)

		if !inMap {
			if line == Marker {
				inMap = true
				continue
			}
			m.HeaderLines = append(m.HeaderLines, raw)
			continue
		}
		if line == "" || isTrailer(line) {
			continue
		}

		rec, ok := parseRecord(line)
		if !ok {
			m.Malformed++
			continue
		}
		m.Records = append(m.Records, rec)
	}

	m.Grid = BuildGrid(m.Records)
	return m
}

// Read decodes a sparse map from r.
func Read(r io.Reader) (*Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "read sparse input")
	}
	return Decode(data), nil
}

// BuildGrid normalises records into a dense grid. Records are ordered by
// (y, x); a new row starts whenever y changes. Returns nil for no records.
func BuildGrid(records []Record) wafer.Grid {
	if len(records) == 0 {
		return nil
	}

	minX := records[0].X
	for _, r := range records[1:] {
		if r.X < minX {
			minX = r.X
		}
	}

	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var grid wafer.Grid
	var row []wafer.Cell
	curY := sorted[0].Y
	for _, r := range sorted {
		if r.Y != curY {
			grid = append(grid, row)
			row = nil
			curY = r.Y
		}
		for len(row) < r.X-minX {
			row = append(row, wafer.Blank)
		}
		row = append(row, r.Cell)
	}
	grid = append(grid, row)

	width := grid.Width()
	for i := range grid {
		for len(grid[i]) < width {
			grid[i] = append(grid[i], wafer.Blank)
		}
	}
	return grid
}

// CellForBin maps a sparse bin number to its grid cell. Bins other than
// 0..9 and 257 map to wafer.Wide.
func CellForBin(bin int) wafer.Cell {
	switch {
	case bin == SkipBin:
		return wafer.Skip
	case bin >= 0 && bin <= 9:
		return wafer.Cell('0' + bin)
	}
	return wafer.Wide
}

// BinForCell maps a grid cell back to the bin label written in the record
// section. 'S' becomes 257; any other code is written as-is.
func BinForCell(c wafer.Cell) string {
	if c == wafer.Skip {
		return strconv.Itoa(SkipBin)
	}
	return c.String()
}

// Label returns the bin written for r when the composite holds c at its
// position. A wafer.Wide code keeps the record's own bin.
func (r Record) Label(c wafer.Cell) string {
	if c == wafer.Wide {
		return strconv.Itoa(r.Bin)
	}
	return BinForCell(c)
}

func parseRecord(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Record{}, false
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, false
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, false
	}
	bin, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, false
	}
	return Record{X: x, Y: y, Cell: CellForBin(bin), Bin: bin}, true
}

func isTrailer(line string) bool {
	for _, p := range trailerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// String renders a record as an "x y bin" line.
func (r Record) String() string {
	return fmt.Sprintf("%d %d %s", r.X, r.Y, r.Label(r.Cell))
}
