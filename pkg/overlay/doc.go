// Package overlay merges per-station wafer maps into one composite map.
//
// # Precedence
//
// Every participating station needs an entry in a [PriorityTable]; higher
// values win conflicts. Sources are sorted ascending by priority, the
// lowest-priority grid seeds the composite (deep-copied), and every further
// source is laid over it in turn. Stations without an entry are excluded with
// a warning. Priorities must be distinct among the participating stations, so
// the result never depends on the order the sources were supplied in.
//
// # Alignment
//
// Station grids may be shifted horizontally against each other. For every
// shared row an anchor column is detected in both rows (see [RowAnchor]) and
// the incoming row is shifted by the difference. When either row has no
// anchor the row is reported as unaligned and merged without a shift.
//
// # Replacement
//
// Whether an incoming cell overwrites the composite cell is decided by a
// [Policy]. [HigherBin] is the default; [NonPass] reproduces the other legacy
// rule. A blank incoming cell never replaces anything, and writing a value
// over itself is not a change. Every applied replacement is appended to the
// [ChangeTrace].
//
// The composite always keeps the shape of the lowest-priority grid: rows past
// the shorter of the two grids and cells that align outside a row are left
// untouched.
package overlay
