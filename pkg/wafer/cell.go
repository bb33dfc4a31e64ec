package wafer

import "fmt"

// Cell is one die result code.
type Cell byte

// Well-known cell codes.
const (
	Blank   Cell = '.'
	Space   Cell = ' '
	Skip    Cell = 'S'
	Marker  Cell = '*'
	Pass    Cell = '1'
	PassAlt Cell = 'A'

	// Wide stands in for a sparse bin that has no one-character code
	// (10 and above). The original bin travels with the sparse record.
	Wide Cell = '#'
)

// IsDigit reports whether c is a numeric bin code.
func (c Cell) IsDigit() bool { return c >= '0' && c <= '9' }

// IsBlank reports whether c carries no result ('.' or ' ').
func (c Cell) IsBlank() bool { return c == Blank || c == Space }

// IsPass reports whether c is a passing die.
func (c Cell) IsPass() bool { return c == Pass || c == PassAlt }

// IsTested reports whether c counts towards the tested total.
func (c Cell) IsTested() bool { return c != Blank && c != Skip && c != Marker }

// Digit returns the numeric value of a digit cell, or -1.
func (c Cell) Digit() int {
	if !c.IsDigit() {
		return -1
	}
	return int(c - '0')
}

// String returns the cell as a one-character string.
func (c Cell) String() string { return string(rune(c)) }

// MarshalText encodes the cell as its character.
func (c Cell) MarshalText() ([]byte, error) { return []byte{byte(c)}, nil }

// UnmarshalText decodes a one-character cell.
func (c *Cell) UnmarshalText(b []byte) error {
	if len(b) != 1 {
		return fmt.Errorf("wafer: cell must be one character, got %q", b)
	}
	*c = Cell(b[0])
	return nil
}
