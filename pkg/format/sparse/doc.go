// Package sparse reads and writes the coordinate-list wafer map layout used by
// the WLBI station.
//
// A sparse file is a block of free-form header lines, a literal "[MAP]:"
// marker, one "x y bin" record per die, and a trailer:
//
//	Total Tested: 803
//	Yield: 89.17%
//	[MAP]:
//	12 3 1
//	13 3 257
//	...
//	Total Prober Test Dies: 803
//	Total Prober Pass Dies: 716
//	Bin 000: 0      Bin 001: 716    ...
//	## END ##
//
// [Decode] normalises the absolute coordinates into a dense [wafer.Grid]:
// rows follow the distinct y values in ascending order, each row is
// left-padded with '.' up to its x offset from the smallest x, and every row
// is right-padded to the widest row. Bin 257 becomes 'S'; bins 0..9 become
// their digit. The record order of the file is retained so that [Encode] can
// regenerate the coordinate list in the same physical die order from a
// composite grid.
//
// Malformed records (first three fields not integers) are skipped without
// error. A file without any valid record decodes to an empty grid, which
// callers treat as "no data for this station".
package sparse
