// Package pkg provides the core libraries for wafermap.
//
// # Overview
//
// Wafermap merges the wafer maps produced by several inspection and probe
// stations (AOI, CP1, CP2, WLBI, ...) into one composite map per wafer. The
// pkg directory is organized into four main areas:
//
//  1. [wafer] - Domain types (cells, grids, headers, statistics)
//  2. [format] - Codecs for the dense, sparse and HEX layouts
//  3. [overlay] - Alignment, replacement policies and the merge engine
//  4. [pipeline] - Orchestration (decode → merge → encode)
//
// # Architecture
//
// The typical data flow through wafermap:
//
//	Station files (dense text, sparse coordinates)
//	         ↓
//	    [format/dense], [format/sparse] (decode to grids)
//	         ↓
//	    [overlay] (align rows, merge by station priority)
//	         ↓
//	    [format/dense], [format/sparse], [format/hex], [io] (encode)
//	         ↓
//	    mapEx / wafermap / HEX / sparse / JSON / debug output
//
// # Quick Start
//
// Merge two station maps:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/wafermap/pkg/overlay"
//	    "github.com/matzehuels/wafermap/pkg/wafer"
//	)
//
//	res, _ := overlay.Merge(context.Background(), []overlay.Source{
//	    {Station: "AOI", Grid: wafer.ParseRows(".S12", ".1.1")},
//	    {Station: "CP1", Grid: wafer.ParseRows(".S32", ".1.5")},
//	}, overlay.PriorityFromOrder([]string{"AOI", "CP1"}))
//
//	fmt.Print(res.Composite)  // .S32 / .1.5
//
// # Main Packages
//
// ## Domain
//
// [wafer] - Cells, grids, "Key: Value" headers and tested/pass/fail/yield
// statistics.
//
// [format/dense] - The character-grid layout used by AOI, CP and FAB files
// and by the mapEx and wafermap outputs.
//
// [format/sparse] - The "x y bin" record layout used by WLBI files, including
// re-encoding in the original record order.
//
// [format/hex] - The fixed-width HEX token rendering with a digit histogram.
//
// [overlay] - Row alignment, the [overlay.Policy] strategies, priority tables,
// the merge engine with its change trace, and the debug report.
//
// ## Infrastructure
//
// [pipeline] - Complete overlay pipeline used by CLI and API. Ensures
// consistent behavior across all entry points.
//
// [config] - TOML and YAML job files.
//
// [cache] - Decoded-grid caches (file, Redis, null).
//
// [storage] - Run archive backends (SQLite, MongoDB).
//
// [io] - JSON interchange of composite results.
//
// [errors] - Error codes and failure scopes.
//
// [observability] - Hooks for metrics and tracing.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/overlay/...   # Specific package
//
// [wafer]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/wafer
// [format]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/format
// [format/dense]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/format/dense
// [format/sparse]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/format/sparse
// [format/hex]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/format/hex
// [overlay]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/overlay
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/cache
// [storage]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/storage
// [io]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/io
// [errors]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/observability
package pkg
