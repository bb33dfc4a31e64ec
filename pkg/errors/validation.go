package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// stationNameRegex matches station names such as "AOI", "CP1", "FAB CP" or "衬底".
var stationNameRegex = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _.-]*$`)

// ValidateStationName validates a station name used as a priority key.
func ValidateStationName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidStation, "station name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidStation, "station name too long (max 64 characters)")
	}
	if !stationNameRegex.MatchString(name) {
		return New(ErrCodeInvalidStation, "invalid station name: %q", name)
	}
	return nil
}

// waferIDRegex matches wafer identifiers ("01", "B003332-01", "W_12").
var waferIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateWaferID validates a wafer identifier. Wafer IDs become part of
// output file names, so path separators are rejected.
func ValidateWaferID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "wafer id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "wafer id too long (max 128 characters)")
	}
	if !waferIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid wafer id: %q", id)
	}
	return nil
}

// ValidatePath validates a station file path from a job file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateOutputName validates a base file name used for outputs.
// It must be a simple basename without path components.
func ValidateOutputName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "output name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "output name cannot contain path separators")
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "output name cannot contain path traversal sequences (..)")
	}
	return nil
}
