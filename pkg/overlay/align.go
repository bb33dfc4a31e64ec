package overlay

import "github.com/matzehuels/wafermap/pkg/wafer"

// Alignment is the horizontal shift between a composite row and an incoming
// row. A cell at incoming column j lands on composite column j-Offset.
type Alignment struct {
	Offset  int
	Aligned bool
}

// RowAnchor detects the anchor column of a row.
//
// Row 0 is the index row: the anchor is two columns past the first '.'
// that is followed by 'S' or '*'. Any other row anchors at the first digit
// that follows at least one '.'. ok is false when no anchor exists.
func RowAnchor(row []wafer.Cell, index int) (anchor int, ok bool) {
	if index == 0 {
		for j := 0; j+1 < len(row); j++ {
			if row[j] == wafer.Blank && (row[j+1] == wafer.Skip || row[j+1] == wafer.Marker) {
				return j + 2, true
			}
		}
		return 0, false
	}

	seenDot := false
	for j, c := range row {
		if c == wafer.Blank {
			seenDot = true
		} else if seenDot && c.IsDigit() {
			return j, true
		}
	}
	return 0, false
}

// Align computes the shift of incoming row against composite row at index.
// If either anchor is missing the result is unaligned with a zero offset.
// A missing anchor is not read as column 0: merging "1.5" onto "1.." would
// then shift by 2 and drop the incoming dies instead of overlaying them in
// place.
func Align(composite, incoming []wafer.Cell, index int) Alignment {
	ac, okc := RowAnchor(composite, index)
	ai, oki := RowAnchor(incoming, index)
	if !okc || !oki {
		return Alignment{}
	}
	return Alignment{Offset: ai - ac, Aligned: true}
}
