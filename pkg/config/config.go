// Package config loads overlay job files.
//
// A job file lists the wafers to process, each with its station sources,
// together with the station priorities, replacement policy, output formats,
// cache and archive settings. TOML (.toml) and YAML (.yaml, .yml) are
// supported; the format is chosen by file extension.
//
// Relative source paths and the output directory are resolved against the
// directory of the job file. A validated Config is treated as immutable and
// turned into pipeline jobs with [Config.Jobs].
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/pipeline"
	"github.com/matzehuels/wafermap/pkg/storage"
)

// Config is a parsed job file.
type Config struct {
	Policy   string         `toml:"policy" yaml:"policy"`
	Parallel int            `toml:"parallel" yaml:"parallel"`
	Order    []string       `toml:"order" yaml:"order"`
	Priority map[string]int `toml:"priority" yaml:"priority"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`
	Store    StoreConfig    `toml:"store" yaml:"store"`
	Wafers   []WaferConfig  `toml:"wafer" yaml:"wafer"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// OutputConfig selects where and what to write.
type OutputConfig struct {
	Dir     string   `toml:"dir" yaml:"dir"`
	Formats []string `toml:"formats" yaml:"formats"`
}

// CacheConfig selects the decoded-grid cache.
type CacheConfig struct {
	Dir   string `toml:"dir" yaml:"dir"`
	Redis string `toml:"redis" yaml:"redis"`
}

// StoreConfig selects the run archive. An empty driver disables it.
type StoreConfig struct {
	Driver   string `toml:"driver" yaml:"driver"`
	DSN      string `toml:"dsn" yaml:"dsn"`
	Database string `toml:"database" yaml:"database"`
}

// WaferConfig is one wafer and its station sources.
type WaferConfig struct {
	ID      string         `toml:"id" yaml:"id"`
	Name    string         `toml:"name" yaml:"name"`
	Sources []SourceConfig `toml:"source" yaml:"source"`
}

// SourceConfig is one station file.
type SourceConfig struct {
	Station string `toml:"station" yaml:"station"`
	Path    string `toml:"path" yaml:"path"`
	Format  string `toml:"format" yaml:"format"`
}

// Load reads, parses and validates the job file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data as TOML or YAML depending on ext (".toml", ".yaml",
// ".yml"). It does not validate.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse TOML")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse YAML")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"unsupported job file extension %q (use .toml, .yaml or .yml)", ext)
	}
	return cfg, nil
}

// Validate applies defaults and checks every field. Station names without a
// priority are accepted here; the engine excludes them per wafer.
func (c *Config) Validate() error {
	if c.Policy == "" {
		c.Policy = overlay.DefaultPolicy
	}
	if _, err := overlay.PolicyByName(c.Policy); err != nil {
		return err
	}
	if c.Parallel == 0 {
		c.Parallel = pipeline.DefaultParallel
	}
	if c.Parallel < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parallel must be positive, got %d", c.Parallel)
	}

	if c.Output.Dir == "" {
		c.Output.Dir = pipeline.DefaultOutputDir
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = append([]string(nil), pipeline.AllFormats...)
	}
	if err := pipeline.ValidateFormats(c.Output.Formats); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "", storage.DriverSQLite, storage.DriverMongo:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown store driver %q (must be one of: %s, %s)", c.Store.Driver, storage.DriverSQLite, storage.DriverMongo)
	}
	if c.Store.Driver == storage.DriverMongo && c.Store.DSN == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "store.dsn is required for the mongo driver")
	}

	if err := c.validatePriority(); err != nil {
		return err
	}

	if len(c.Wafers) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "no [[wafer]] entries")
	}
	seen := make(map[string]bool, len(c.Wafers))
	for i := range c.Wafers {
		w := &c.Wafers[i]
		if err := errors.ValidateWaferID(w.ID); err != nil {
			return fmt.Errorf("wafer %d: %w", i+1, err)
		}
		if seen[w.ID] {
			return errors.New(errors.ErrCodeInvalidConfig, "wafer %q listed twice", w.ID)
		}
		seen[w.ID] = true
		if w.Name == "" {
			w.Name = w.ID
		}
		if err := errors.ValidateOutputName(w.Name); err != nil {
			return fmt.Errorf("wafer %s: %w", w.ID, err)
		}
		if len(w.Sources) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "wafer %s has no sources", w.ID)
		}
		for j := range w.Sources {
			s := &w.Sources[j]
			if err := errors.ValidateStationName(s.Station); err != nil {
				return fmt.Errorf("wafer %s: %w", w.ID, err)
			}
			if err := errors.ValidatePath(s.Path); err != nil {
				return fmt.Errorf("wafer %s station %s: %w", w.ID, s.Station, err)
			}
			if s.Format == "" {
				s.Format = pipeline.DefaultSourceFormat
			}
			if err := pipeline.ValidateSourceFormat(s.Format); err != nil {
				return fmt.Errorf("wafer %s station %s: %w", w.ID, s.Station, err)
			}
		}
	}
	return nil
}

func (c *Config) validatePriority() error {
	for _, name := range c.Order {
		if err := errors.ValidateStationName(name); err != nil {
			return err
		}
	}
	table := c.PriorityTable()
	names := make([]string, 0, len(table))
	for name := range table {
		if err := errors.ValidateStationName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if err := table.Validate(names); err != nil {
		return err
	}
	if len(table) == 0 {
		return errors.New(errors.ErrCodeInvalidPriority, "no station priorities: set [priority] or order")
	}
	return nil
}

// PriorityTable returns the explicit [priority] table when present, else the
// table derived from order.
func (c *Config) PriorityTable() overlay.PriorityTable {
	if len(c.Priority) > 0 {
		return overlay.PriorityTable(c.Priority).Clone()
	}
	return overlay.PriorityFromOrder(c.Order)
}

// OutputDir returns the output root resolved against the job file.
func (c *Config) OutputDir() string {
	return c.resolve(c.Output.Dir)
}

// StorageConfig returns the archive settings with a relative SQLite DSN
// resolved against the job file.
func (c *Config) StorageConfig() storage.Config {
	sc := storage.Config{Driver: c.Store.Driver, DSN: c.Store.DSN, Database: c.Store.Database}
	if sc.Driver == storage.DriverSQLite {
		if sc.DSN == "" {
			sc.DSN = "wafermap.db"
		}
		sc.DSN = c.resolve(sc.DSN)
	}
	return sc
}

// Jobs converts every wafer into a pipeline job.
func (c *Config) Jobs() []pipeline.Job {
	priority := c.PriorityTable()
	jobs := make([]pipeline.Job, 0, len(c.Wafers))
	for _, w := range c.Wafers {
		job := pipeline.Job{
			WaferID:  w.ID,
			Name:     w.Name,
			Priority: priority.Clone(),
			Policy:   c.Policy,
			Formats:  append([]string(nil), c.Output.Formats...),
		}
		for _, s := range w.Sources {
			job.Sources = append(job.Sources, pipeline.SourceSpec{
				Station: s.Station,
				Path:    c.resolve(s.Path),
				Format:  s.Format,
			})
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Stations lists every station named by any wafer, in first-seen order.
func (c *Config) Stations() []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range c.Wafers {
		for _, s := range w.Sources {
			if !seen[s.Station] {
				seen[s.Station] = true
				out = append(out, s.Station)
			}
		}
	}
	return out
}

// WithOrder returns a copy of c whose priorities follow order and whose
// explicit [priority] table is dropped.
func (c *Config) WithOrder(order []string) *Config {
	cp := *c
	cp.Order = append([]string(nil), order...)
	cp.Priority = nil
	return &cp
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// EncodePriorityTOML renders table as a [priority] TOML section in
// ascending priority order. Entries are encoded one at a time since the
// encoder sorts map keys.
func EncodePriorityTOML(table overlay.PriorityTable) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("[priority]\n")
	enc := toml.NewEncoder(&buf)
	for _, name := range table.Order() {
		if err := enc.Encode(map[string]int{name: table[name]}); err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "encode priority %q", name)
		}
	}
	return buf.String(), nil
}
