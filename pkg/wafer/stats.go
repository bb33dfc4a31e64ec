package wafer

import (
	"fmt"
	"strconv"
)

// Header keys rewritten from freshly computed statistics.
const (
	KeyTotalTested = "Total Tested"
	KeyTotalPass   = "Total Pass"
	KeyTotalFail   = "Total Fail"
	KeyYield       = "Yield"
)

// Stats summarises a grid.
type Stats struct {
	Tested int     `json:"tested"`
	Pass   int     `json:"pass"`
	Fail   int     `json:"fail"`
	Yield  float64 `json:"yield_pct"`
}

// ComputeStats counts tested and passing dies in g.
// Cells '.', 'S' and '*' are not tested; '1' and 'A' pass.
func ComputeStats(g Grid) Stats {
	var s Stats
	for _, row := range g {
		for _, c := range row {
			if !c.IsTested() {
				continue
			}
			s.Tested++
			if c.IsPass() {
				s.Pass++
			}
		}
	}
	return NewStats(s.Tested, s.Pass)
}

// NewStats derives fail and yield from tested and pass counts.
func NewStats(tested, pass int) Stats {
	s := Stats{Tested: tested, Pass: pass, Fail: tested - pass}
	if tested > 0 {
		s.Yield = 100 * float64(pass) / float64(tested)
	}
	return s
}

// YieldString formats the yield with two decimals and a percent sign.
func (s Stats) YieldString() string {
	return fmt.Sprintf("%.2f%%", s.Yield)
}

// Value returns the rewritten header value for one of the statistics keys.
func (s Stats) Value(key string) (string, bool) {
	switch key {
	case KeyTotalTested:
		return strconv.Itoa(s.Tested), true
	case KeyTotalPass:
		return strconv.Itoa(s.Pass), true
	case KeyTotalFail:
		return strconv.Itoa(s.Fail), true
	case KeyYield:
		return s.YieldString(), true
	}
	return "", false
}
