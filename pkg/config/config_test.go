package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/pipeline"
)

const sampleTOML = `
policy = "non-pass"
parallel = 2

[priority]
AOI = 1
CP1 = 2
"FAB CP" = 3

[output]
dir = "out"
formats = ["mapex", "hex"]

[store]
driver = "sqlite"
dsn = "runs.db"

[[wafer]]
id = "01"
name = "S1M032120B_B003332_01"
  [[wafer.source]]
  station = "AOI"
  path = "in/AOI/01.txt"
  [[wafer.source]]
  station = "CP1"
  path = "/abs/CP1/01_mapEx.txt"
  [[wafer.source]]
  station = "WLBI"
  path = "in/WLBI/01.WaferMap"
  format = "sparse"

[[wafer]]
id = "02"
  [[wafer.source]]
  station = "AOI"
  path = "in/AOI/02.txt"
`

const sampleYAML = `
order: [AOI, CP1, CP2]
wafer:
  - id: "01"
    source:
      - station: AOI
        path: a.txt
      - station: CP2
        path: c.txt
`

func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeJob(t, "job.toml", sampleTOML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Dir(path)

	if cfg.Policy != overlay.PolicyNonPass || cfg.Parallel != 2 {
		t.Errorf("Policy/Parallel = %q/%d", cfg.Policy, cfg.Parallel)
	}
	want := overlay.PriorityTable{"AOI": 1, "CP1": 2, "FAB CP": 3}
	if diff := cmp.Diff(want, cfg.PriorityTable()); diff != "" {
		t.Errorf("priority mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.OutputDir(); got != filepath.Join(dir, "out") {
		t.Errorf("OutputDir() = %q", got)
	}
	if sc := cfg.StorageConfig(); sc.DSN != filepath.Join(dir, "runs.db") {
		t.Errorf("StorageConfig().DSN = %q", sc.DSN)
	}

	jobs := cfg.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("Jobs() returned %d jobs, want 2", len(jobs))
	}
	wantSources := []pipeline.SourceSpec{
		{Station: "AOI", Path: filepath.Join(dir, "in/AOI/01.txt"), Format: pipeline.SourceDense},
		{Station: "CP1", Path: "/abs/CP1/01_mapEx.txt", Format: pipeline.SourceDense},
		{Station: "WLBI", Path: filepath.Join(dir, "in/WLBI/01.WaferMap"), Format: pipeline.SourceSparse},
	}
	if diff := cmp.Diff(wantSources, jobs[0].Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if jobs[0].Name != "S1M032120B_B003332_01" || jobs[1].Name != "02" {
		t.Errorf("names = %q, %q", jobs[0].Name, jobs[1].Name)
	}
	if diff := cmp.Diff([]string{"mapex", "hex"}, jobs[1].Formats); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"AOI", "CP1", "WLBI"}, cfg.Stations()); diff != "" {
		t.Errorf("stations mismatch (-want +got):\n%s", diff)
	}

	// Jobs do not share priority tables.
	jobs[0].Priority["AOI"] = 99
	if jobs[1].Priority["AOI"] != 1 {
		t.Error("jobs share a priority table")
	}
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeJob(t, "job.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := overlay.PriorityTable{"AOI": 1, "CP1": 2, "CP2": 3}
	if diff := cmp.Diff(want, cfg.PriorityTable()); diff != "" {
		t.Errorf("priority mismatch (-want +got):\n%s", diff)
	}
	if cfg.Policy != overlay.DefaultPolicy || cfg.Parallel != pipeline.DefaultParallel {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if diff := cmp.Diff(pipeline.AllFormats, cfg.Output.Formats); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.Code
	}{
		{"extension", "job.json", `{}`, errors.ErrCodeInvalidConfig},
		{"syntax", "job.toml", `policy = `, errors.ErrCodeInvalidConfig},
		{"policy", "job.toml", "policy = \"lowest\"\norder = [\"AOI\"]\n[[wafer]]\nid = \"01\"\n", errors.ErrCodeInvalidPolicy},
		{"format", "job.toml", "order = [\"AOI\"]\n[output]\nformats = [\"jpg\"]\n", errors.ErrCodeInvalidFormat},
		{"tie", "job.toml", "[priority]\nAOI = 1\nCP1 = 1\n", errors.ErrCodeInvalidPriority},
		{"no priorities", "job.toml", "[[wafer]]\nid = \"01\"\n", errors.ErrCodeInvalidPriority},
		{"no wafers", "job.toml", "order = [\"AOI\"]\n", errors.ErrCodeInvalidConfig},
		{"driver", "job.toml", "order = [\"AOI\"]\n[store]\ndriver = \"pg\"\n", errors.ErrCodeInvalidConfig},
		{"no sources", "job.toml", "order = [\"AOI\"]\n[[wafer]]\nid = \"01\"\n", errors.ErrCodeInvalidConfig},
		{"bad wafer id", "job.toml", "order = [\"AOI\"]\n[[wafer]]\nid = \"a/b\"\n", errors.ErrCodeInvalidInput},
		{"source format", "job.yml", "order: [AOI]\nwafer:\n  - id: \"01\"\n    source:\n      - {station: AOI, path: a, format: xml}\n", errors.ErrCodeInvalidFormat},
		{"empty path", "job.yml", "order: [AOI]\nwafer:\n  - id: \"01\"\n    source:\n      - {station: AOI}\n", errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeJob(t, tt.file, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
	}
}

func TestWithOrder(t *testing.T) {
	cfg, err := Load(writeJob(t, "job.toml", sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	re := cfg.WithOrder([]string{"CP1", "AOI"})
	want := overlay.PriorityTable{"CP1": 1, "AOI": 2}
	if diff := cmp.Diff(want, re.PriorityTable()); diff != "" {
		t.Errorf("priority mismatch (-want +got):\n%s", diff)
	}
	if cfg.PriorityTable()["AOI"] != 1 {
		t.Error("WithOrder modified the original config")
	}
}

func TestEncodePriorityTOML(t *testing.T) {
	got, err := EncodePriorityTOML(overlay.PriorityTable{"CP1": 2, "AOI": 1, "FAB CP": 3})
	if err != nil {
		t.Fatalf("EncodePriorityTOML: %v", err)
	}
	want := "[priority]\nAOI = 1\nCP1 = 2\n\"FAB CP\" = 3\n"
	if got != want {
		t.Errorf("EncodePriorityTOML() = %q, want %q", got, want)
	}

	// The output parses back into the same table.
	cfg, err := Parse([]byte(got), ".toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Priority["FAB CP"] != 3 || !strings.Contains(got, "AOI = 1") {
		t.Errorf("round trip priority = %v", cfg.Priority)
	}
}

func TestEncodePriorityTOMLQuotedKeys(t *testing.T) {
	table := overlay.PriorityTable{"衬底": 1, "CP.2": 2, "AOI": 3}
	got, err := EncodePriorityTOML(table)
	if err != nil {
		t.Fatalf("EncodePriorityTOML: %v", err)
	}
	cfg, err := Parse([]byte(got), ".toml")
	if err != nil {
		t.Fatalf("Parse(%q): %v", got, err)
	}
	for name, want := range table {
		if cfg.Priority[name] != want {
			t.Errorf("priority[%q] = %d, want %d\n%s", name, cfg.Priority[name], want, got)
		}
	}
	if strings.Index(got, "AOI") < strings.Index(got, "CP.2") {
		t.Errorf("entries not in ascending priority order:\n%s", got)
	}
}
