package overlay

import (
	"fmt"

	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Change is one applied replacement.
type Change struct {
	Station string     `json:"station"`
	Row     int        `json:"row"`
	Col     int        `json:"col"`
	Old     wafer.Cell `json:"old"`
	New     wafer.Cell `json:"new"`
}

// String formats the change as "(r,c): old -> new".
func (c Change) String() string {
	return fmt.Sprintf("(%d,%d): %s -> %s", c.Row, c.Col, c.Old, c.New)
}

// ChangeTrace is the ordered list of replacements applied during a merge.
type ChangeTrace []Change

// ByStation returns the changes contributed by station.
func (t ChangeTrace) ByStation(station string) ChangeTrace {
	var out ChangeTrace
	for _, c := range t {
		if c.Station == station {
			out = append(out, c)
		}
	}
	return out
}
