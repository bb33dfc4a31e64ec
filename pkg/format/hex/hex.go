// Package hex renders a wafer grid in the fixed-width HEX token layout.
//
// Every cell becomes a three-character token: "__ " for '.' and 'S',
// "0d " for a digit d, and "*c " for any other code c. Each grid row is one
// "Rowdata: " line. A digit histogram follows the rows:
//
//	Rowdata: __ 01 01 __
//	Rowdata: 01 03 *A __
//
//	# Digit Counts:
//	01: 3
//	03: 1
package hex

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/matzehuels/wafermap/pkg/wafer"
)

// RowPrefix starts every row line.
const RowPrefix = "Rowdata: "

// Token returns the three-character token for c.
func Token(c wafer.Cell) string {
	switch {
	case c == wafer.Blank || c == wafer.Skip:
		return "__ "
	case c.IsDigit():
		return "0" + c.String() + " "
	default:
		return "*" + c.String() + " "
	}
}

// DigitCount is the number of occurrences of one digit.
type DigitCount struct {
	Digit int
	Count int
}

// Histogram counts the digit cells of g, ascending by digit. Digits that do
// not occur are omitted.
func Histogram(g wafer.Grid) []DigitCount {
	var counts [10]int
	for _, row := range g {
		for _, c := range row {
			if c.IsDigit() {
				counts[c.Digit()]++
			}
		}
	}
	var out []DigitCount
	for d, n := range counts {
		if n > 0 {
			out = append(out, DigitCount{Digit: d, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Digit < out[j].Digit })
	return out
}

// Encode renders g as HEX text.
func Encode(g wafer.Grid) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, g)
	return buf.Bytes()
}

// Write streams the HEX rendering of g to w.
func Write(w io.Writer, g wafer.Grid) error {
	var buf bytes.Buffer
	for _, row := range g {
		buf.WriteString(RowPrefix)
		for _, c := range row {
			buf.WriteString(Token(c))
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\n# Digit Counts:")
	for _, dc := range Histogram(g) {
		fmt.Fprintf(&buf, "\n%02d: %d ", dc.Digit, dc.Count)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
