package wafer

import (
	"encoding/json"
	"strings"
)

// Grid is an ordered sequence of rows of cells. Rows may differ in length.
type Grid [][]Cell

// ParseRows builds a grid from row strings, one cell per byte.
func ParseRows(rows ...string) Grid {
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = []Cell(r)
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Empty reports whether the grid has no rows.
func (g Grid) Empty() bool { return len(g) == 0 }

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, r := range g {
		out[i] = append([]Cell(nil), r...)
	}
	return out
}

// Strings returns each row as a string.
func (g Grid) Strings() []string {
	out := make([]string, len(g))
	for i, r := range g {
		out[i] = string(r)
	}
	return out
}

// Equal reports whether g and o have identical rows.
func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	for i := range g {
		if string(g[i]) != string(o[i]) {
			return false
		}
	}
	return true
}

// Codes returns the non-blank cells of g in row-major order.
func (g Grid) Codes() []Cell {
	var out []Cell
	for _, r := range g {
		for _, c := range r {
			if c != Blank {
				out = append(out, c)
			}
		}
	}
	return out
}

// String joins the rows with newlines.
func (g Grid) String() string {
	return strings.Join(g.Strings(), "\n")
}

// MarshalJSON encodes the grid as an array of row strings.
func (g Grid) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	return json.Marshal(g.Strings())
}

// UnmarshalJSON decodes an array of row strings.
func (g *Grid) UnmarshalJSON(b []byte) error {
	var rows []string
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	if rows == nil {
		*g = nil
		return nil
	}
	*g = ParseRows(rows...)
	return nil
}
