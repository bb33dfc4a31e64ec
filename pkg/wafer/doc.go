// Package wafer defines the canonical wafer map model shared by every codec
// and by the overlay engine.
//
// A wafer map is a [Grid] of single-character [Cell] codes, one per die site.
// Station files carry their own textual layout; the codecs under
// pkg/format translate those layouts to and from a Grid. Dense station files
// also carry a [Header] of "Key: Value" lines which is preserved, in order,
// when the composite map is written back out.
//
// # Cell alphabet
//
//   - '.' untested / blank die site
//   - 'S' special / skip die (bin 257 in the sparse coordinate format)
//   - '*' marker cell used by some stations in the index row
//   - '0'..'9' bin codes
//   - any other letter: station-specific result codes
//
// '1' is a passing die; by one legacy convention 'A' is also a pass.
//
// # Statistics
//
// [ComputeStats] derives tested / pass / fail counts and the yield percentage
// from a Grid. Stats are always recomputed from the grid they describe and
// are never stored independently of it.
package wafer
