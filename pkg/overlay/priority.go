package overlay

import (
	"sort"

	"github.com/matzehuels/wafermap/pkg/errors"
)

// PriorityTable maps station name to precedence. Higher values win.
type PriorityTable map[string]int

// PriorityFromOrder builds a table from stations listed lowest precedence
// first: order[i] gets priority i+1.
func PriorityFromOrder(order []string) PriorityTable {
	t := make(PriorityTable, len(order))
	for i, name := range order {
		t[name] = i + 1
	}
	return t
}

// Lookup returns the priority of station.
func (t PriorityTable) Lookup(station string) (int, bool) {
	p, ok := t[station]
	return p, ok
}

// Validate checks that the listed stations have distinct priorities.
// Stations without an entry are ignored here; the engine excludes them.
func (t PriorityTable) Validate(stations []string) error {
	seen := make(map[int]string, len(stations))
	for _, s := range stations {
		p, ok := t[s]
		if !ok {
			continue
		}
		if other, dup := seen[p]; dup && other != s {
			return errors.New(errors.ErrCodeInvalidPriority,
				"stations %q and %q share priority %d", other, s, p)
		}
		seen[p] = s
	}
	return nil
}

// Order returns the table's stations ascending by priority.
func (t PriorityTable) Order() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if t[names[i]] != t[names[j]] {
			return t[names[i]] < t[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Clone returns an independent copy of t.
func (t PriorityTable) Clone() PriorityTable {
	out := make(PriorityTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
