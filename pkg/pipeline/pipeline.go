// Package pipeline runs the complete wafer overlay: decode every station
// source, merge, compute statistics, and encode the composite into the
// requested output formats.
//
// This package is shared by the CLI and the API server. By centralizing this
// logic, both entry points apply the same exclusion rules, caching and
// archiving.
//
// # Architecture
//
// One wafer is one [Job]. The pipeline consists of three stages:
//
//  1. Decode: read and parse each station source (concurrently, cached)
//  2. Merge: lay the decoded grids over each other in priority order
//  3. Encode: render the composite in every requested format
//
// Failures are scoped to the smallest unit: a missing, empty or unreadable
// source is excluded with a warning; a wafer with nothing left to merge
// fails on its own; a [Runner.Batch] of many wafers always completes.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Job{
//	    WaferID:  "01",
//	    Priority: overlay.PriorityTable{"AOI": 1, "CP1": 2},
//	    Sources: []pipeline.SourceSpec{
//	        {Station: "AOI", Path: "in/AOI/01.txt"},
//	        {Station: "CP1", Path: "in/CP1/01_mapEx.txt"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mapex := result.Artifacts[pipeline.FormatMapEx]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultParallel is the number of wafers processed at once by Batch.
	DefaultParallel = 1

	// DefaultOutputDir is the output root used when none is configured.
	DefaultOutputDir = "out"

	// MaxSources bounds the number of station sources per wafer.
	MaxSources = 32
)

// Output format constants.
const (
	FormatMapEx    = "mapex"
	FormatWaferMap = "wafermap"
	FormatHex      = "hex"
	FormatSparse   = "sparse"
	FormatJSON     = "json"
	FormatDebug    = "debug"
)

// AllFormats lists every output format in emission order.
var AllFormats = []string{FormatMapEx, FormatWaferMap, FormatHex, FormatSparse, FormatJSON, FormatDebug}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatMapEx:    true,
	FormatWaferMap: true,
	FormatHex:      true,
	FormatSparse:   true,
	FormatJSON:     true,
	FormatDebug:    true,
}

// Source format constants.
const (
	SourceDense  = "dense"
	SourceSparse = "sparse"
)

// DefaultSourceFormat is assumed when a source names no format.
const DefaultSourceFormat = SourceDense

// =============================================================================
// Job - Pipeline Input
// =============================================================================

// SourceSpec names one station's input. Either Path or Content is set.
type SourceSpec struct {
	Station string `json:"station"`
	Path    string `json:"path,omitempty"`
	Format  string `json:"format,omitempty"`

	// Content holds the raw file when the caller already has it in memory.
	Content []byte `json:"-"`
}

// Job is one wafer to overlay.
type Job struct {
	WaferID  string                `json:"wafer_id"`
	Name     string                `json:"name,omitempty"`
	Sources  []SourceSpec          `json:"sources"`
	Priority overlay.PriorityTable `json:"priority"`
	Policy   string                `json:"policy,omitempty"`
	Formats  []string              `json:"formats,omitempty"`

	// NoArchive skips saving the run even when the runner has a store.
	NoArchive bool `json:"-"`

	// Logger overrides the runner's logger for this job.
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// SourceLoad describes one decoded source.
type SourceLoad struct {
	Station   string `json:"station"`
	Format    string `json:"format"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	Cached    bool   `json:"cached"`
	Malformed int    `json:"malformed,omitempty"`
}

// Result contains the outputs of one wafer.
type Result struct {
	WaferID string
	Name    string

	// Merge is the overlay result including the change trace.
	Merge *overlay.Result

	// Stats are computed from the composite.
	Stats wafer.Stats

	// Loads describes every source that decoded successfully.
	Loads []SourceLoad

	// Excluded lists every source dropped before or during the merge.
	Excluded []overlay.Exclusion

	// Artifacts contains encoded outputs keyed by format.
	Artifacts map[string][]byte

	// RunID is set when the run was archived.
	RunID string

	// Timing contains per-stage durations.
	Timing Timing

	// CacheInfo tracks decode cache hits.
	CacheInfo CacheInfo
}

// Timing contains pipeline execution statistics.
type Timing struct {
	DecodeTime time.Duration
	MergeTime  time.Duration
	EncodeTime time.Duration
}

// CacheInfo tracks cache hits for the decode stage.
type CacheInfo struct {
	DecodeHits   int
	DecodeMisses int
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: mapex, wafermap, hex, sparse, json, debug)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSourceFormat checks that a source format is valid.
func ValidateSourceFormat(format string) error {
	if format != SourceDense && format != SourceSparse {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid source format: %q (must be one of: dense, sparse)", format)
	}
	return nil
}

// =============================================================================
// Job Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (j *Job) ValidateAndSetDefaults() error {
	if j.validated {
		return nil
	}
	if err := errors.ValidateWaferID(j.WaferID); err != nil {
		return err
	}
	if j.Name == "" {
		j.Name = j.WaferID
	}
	if err := errors.ValidateOutputName(j.Name); err != nil {
		return err
	}
	if j.Policy == "" {
		j.Policy = overlay.DefaultPolicy
	}
	if _, err := overlay.PolicyByName(j.Policy); err != nil {
		return err
	}
	if len(j.Formats) == 0 {
		j.Formats = append([]string(nil), AllFormats...)
	}
	if err := ValidateFormats(j.Formats); err != nil {
		return err
	}
	if len(j.Sources) > MaxSources {
		return errors.New(errors.ErrCodeInvalidInput, "too many sources: %d (max %d)", len(j.Sources), MaxSources)
	}
	for i := range j.Sources {
		if err := j.Sources[i].validate(); err != nil {
			return err
		}
	}
	if j.Logger == nil {
		j.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	j.validated = true
	return nil
}

func (s *SourceSpec) validate() error {
	if err := errors.ValidateStationName(s.Station); err != nil {
		return err
	}
	if s.Format == "" {
		s.Format = DefaultSourceFormat
	}
	if err := ValidateSourceFormat(s.Format); err != nil {
		return err
	}
	if s.Content != nil {
		return nil
	}
	if s.Path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "station %s: path or content is required", s.Station)
	}
	return errors.ValidatePath(s.Path)
}

// Wants reports whether the job requests format.
func (j *Job) Wants(format string) bool {
	for _, f := range j.Formats {
		if f == format {
			return true
		}
	}
	return false
}
