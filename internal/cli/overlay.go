package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/config"
	"github.com/matzehuels/wafermap/pkg/pipeline"
)

// overlayOpts holds the command-line flags for the overlay command.
// Set flags override the job file.
type overlayOpts struct {
	output      string // output root
	formats     string // comma-separated output formats
	parallel    int    // wafers processed at once
	policy      string // replacement policy
	interactive bool   // pick the station order before running
	noCache     bool   // disable the decoded-grid cache
	noArchive   bool   // do not archive runs
}

// overlayCommand creates the overlay command.
func (c *CLI) overlayCommand() *cobra.Command {
	var opts overlayOpts

	cmd := &cobra.Command{
		Use:   "overlay [job.toml]",
		Short: "Merge the station maps of every wafer in a job file",
		Long: `Merge the station maps of every wafer in a job file.

Each wafer's sources are decoded, overlaid from lowest to highest station
priority and written to one directory per output format under the output
root (mapEx/, wafermap/, HEX/, sparse/, json/, debug/).

A source that is missing, empty or unreadable is skipped with a warning.
A wafer without any usable source fails on its own; the other wafers of
the job still run.

Use --interactive to arrange the station order before running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOverlay(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output root directory (default: job file [output].dir)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): mapex, wafermap, hex, sparse, json, debug (comma-separated)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "wafers processed concurrently")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "replacement policy: higher-bin, non-pass")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the station order interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.noArchive, "no-archive", false, "do not archive runs")

	return cmd
}

// runOverlay loads the job file, runs every wafer and writes the artifacts.
func (c *CLI) runOverlay(ctx context.Context, path string, opts overlayOpts) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.interactive {
		order, err := pickOrder(ctx, initialOrder(cfg))
		if err != nil {
			return err
		}
		cfg = cfg.WithOrder(order)
		c.Logger.Info("Using station order", "order", order)
	}

	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	outDir := opts.output
	if outDir == "" {
		outDir = cfg.OutputDir()
	}
	parallel := cfg.Parallel
	if opts.parallel > 0 {
		parallel = opts.parallel
	}

	ropts := runnerOptions{
		noCache:  opts.noCache,
		cacheDir: cfg.Cache.Dir,
		redis:    cfg.Cache.Redis,
	}
	if !opts.noArchive {
		ropts.store = cfg.StorageConfig()
	}
	runner, err := c.newRunner(ctx, ropts)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	jobs := cfg.Jobs()
	for i := range jobs {
		if len(formats) > 0 {
			jobs[i].Formats = formats
		}
		if opts.policy != "" {
			jobs[i].Policy = opts.policy
		}
		jobs[i].Logger = c.Logger
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Overlaying %d wafer(s)...", len(jobs)))
	spinner.Start()
	items := runner.Batch(ctx, jobs, parallel)

	if ctx.Err() != nil {
		spinner.Stop()
		return ctx.Err()
	}
	if n := countFailed(items); n > 0 {
		spinner.StopWithError(fmt.Sprintf("Overlay failed for %d of %d wafers", n, len(items)))
	} else {
		spinner.StopWithSuccess(fmt.Sprintf("Overlaid %d wafer(s)", len(items)))
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			printError("Wafer %s: %v", item.Job.WaferID, item.Err)
			continue
		}
		if err := c.reportWafer(item.Result, outDir); err != nil {
			failed++
			printError("Wafer %s: %v", item.Job.WaferID, err)
		}
	}
	prog.done(fmt.Sprintf("Processed %d wafers", len(items)))

	if failed > 0 {
		return fmt.Errorf("%d of %d wafers failed", failed, len(items))
	}
	printNewline()
	printNextStep("Browse archived runs", appName+" history")
	return nil
}

func countFailed(items []pipeline.BatchItem) int {
	n := 0
	for _, item := range items {
		if item.Err != nil {
			n++
		}
	}
	return n
}

// reportWafer writes one wafer's artifacts and prints its summary.
func (c *CLI) reportWafer(res *pipeline.Result, outDir string) error {
	paths, err := pipeline.WriteArtifacts(res, outDir)
	if err != nil {
		return err
	}

	printNewline()
	printSuccess("Wafer %s", StyleHighlight.Render(res.Name))
	fmt.Println(loadsTable(res.Loads, res.Excluded))
	for _, p := range paths {
		printFile(p)
	}
	printSummary(res.Stats, len(res.Merge.Trace), res.CacheInfo.DecodeHits > 0 && res.CacheInfo.DecodeMisses == 0)
	if res.RunID != "" {
		printDetail("Run %s", res.RunID)
	}
	return nil
}

// initialOrder lists the configured priority order followed by any station
// that has no priority yet.
func initialOrder(cfg *config.Config) []string {
	order := cfg.PriorityTable().Order()
	seen := make(map[string]bool, len(order))
	for _, s := range order {
		seen[s] = true
	}
	for _, s := range cfg.Stations() {
		if !seen[s] {
			order = append(order, s)
		}
	}
	return order
}
