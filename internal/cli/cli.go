package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/buildinfo"
	"github.com/matzehuels/wafermap/pkg/cache"
	"github.com/matzehuels/wafermap/pkg/pipeline"
	"github.com/matzehuels/wafermap/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "wafermap"

	// defaultAddr is the listen address of the serve command.
	defaultAddr = ":8080"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Wafermap merges per-station wafer maps into one composite",
		Long:         `Wafermap decodes wafer maps from inspection and probe stations, overlays them by station priority and writes the composite as mapEx, wafermap, HEX, sparse, JSON and debug reports.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.overlayCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.hexCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOptions selects the cache and archive of a runner.
type runnerOptions struct {
	noCache  bool
	cacheDir string
	redis    string
	keyer    cache.Keyer
	store    storage.Config
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts runnerOptions) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cc, opts.keyer, c.Logger)
	if opts.store.Enabled() {
		store, err := storage.Open(ctx, opts.store)
		if err != nil {
			cc.Close()
			return nil, err
		}
		runner.Store = store
	}
	return runner, nil
}

// newCache picks the redis cache when an address is given, else the file
// cache. An unusable cache directory disables caching.
func (c *CLI) newCache(ctx context.Context, opts runnerOptions) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redis != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: opts.redis})
	}
	dir := opts.cacheDir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Debug("cache disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/wafermap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// An empty string selects nil, leaving the choice to the job file.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// sourceFormat maps the --sparse flag to a source format.
func sourceFormat(sparse bool) string {
	if sparse {
		return pipeline.SourceSparse
	}
	return pipeline.SourceDense
}
