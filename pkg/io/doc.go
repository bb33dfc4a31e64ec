// Package io provides JSON import and export for overlay results.
//
// # JSON Format
//
// A result document carries the composite map as an array of row strings
// together with the merge metadata:
//
//	{
//	  "wafer_id": "01",
//	  "name": "S1M032120B_B003332_01",
//	  "policy": "higher-bin",
//	  "order": ["AOI", "CP1"],
//	  "stats": {"tested": 4, "pass": 2, "fail": 2, "yield_pct": 50},
//	  "composite": ["A.3", "1.5"],
//	  "changes": [
//	    {"station": "CP1", "row": 0, "col": 2, "old": "1", "new": "3"}
//	  ]
//	}
//
// Required fields: composite. Stats are recomputed from the composite on
// import, so a hand-edited document never carries stale numbers.
//
// # Import
//
// Use [ImportJSON] to read a document from a file path, or [ReadJSON] to read
// from any io.Reader:
//
//	doc, err := io.ImportJSON("W01_overlayed.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Export
//
// Use [ExportJSON] to write to a file, or [WriteJSON] to write to any
// io.Writer. [FromResult] builds a document from a merge result.
package io
