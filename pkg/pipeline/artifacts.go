package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// formatDirs names the per-format directory under the output root.
var formatDirs = map[string]string{
	FormatMapEx:    "mapEx",
	FormatWaferMap: "wafermap",
	FormatHex:      "HEX",
	FormatSparse:   "sparse",
	FormatJSON:     "json",
	FormatDebug:    "debug",
}

// formatSuffixes is appended to the wafer name to form the file name.
var formatSuffixes = map[string]string{
	FormatMapEx:    "_overlayed.mapEx",
	FormatWaferMap: "_overlayed.wafermap",
	FormatHex:      "_overlayed.hex",
	FormatSparse:   "_overlayed.WaferMap",
	FormatJSON:     "_overlayed.json",
	FormatDebug:    "_debug.txt",
}

// ArtifactPath returns where the artifact of format for wafer name is
// written under outDir.
func ArtifactPath(outDir, name, format string) string {
	return filepath.Join(outDir, formatDirs[format], name+formatSuffixes[format])
}

// WriteArtifacts writes every artifact of res into its format directory
// under outDir and returns the written paths in format order.
func WriteArtifacts(res *Result, outDir string) ([]string, error) {
	var paths []string
	for _, format := range AllFormats {
		data, ok := res.Artifacts[format]
		if !ok {
			continue
		}
		path := ArtifactPath(outDir, res.Name, format)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return paths, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
