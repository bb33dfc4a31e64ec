package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wafermap/pkg/cache"
	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/storage"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// decodeConcurrency bounds concurrent source decodes within one wafer.
const decodeConcurrency = 4

// Runner encapsulates pipeline execution with caching and archiving.
// Both CLI and API use this to avoid duplicating the overlay flow.
//
// The Runner is stateless except for the cache, store and logger - it
// doesn't keep results. Multiple goroutines can safely use the same Runner
// with different jobs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Store archives every run when set.
	Store storage.Store
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete decode → merge → encode pipeline for one wafer.
func (r *Runner) Execute(ctx context.Context, job Job) (*Result, error) {
	r.applyLogger(&job)
	if err := job.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	logger := job.Logger.With("wafer", job.WaferID)

	result := &Result{
		WaferID: job.WaferID,
		Name:    job.Name,
	}

	// Stage 1: Decode
	decodeStart := time.Now()
	decoded, err := r.decodeAll(ctx, job, result, logger)
	if err != nil {
		return nil, err
	}
	result.Timing.DecodeTime = time.Since(decodeStart)

	logger.Info("decoded sources",
		"loaded", len(decoded),
		"excluded", len(result.Excluded),
		"cache_hits", result.CacheInfo.DecodeHits,
		"duration", result.Timing.DecodeTime)

	// Stage 2: Merge
	policy, _ := overlay.PolicyByName(job.Policy)
	engine := overlay.NewEngine(overlay.Config{
		Priority: job.Priority,
		Policy:   policy,
		Logger:   logger,
	})

	sources := make([]overlay.Source, 0, len(decoded))
	byStation := make(map[string]*Decoded, len(decoded))
	for _, d := range decoded {
		sources = append(sources, overlay.Source{Station: d.Station, Grid: d.Grid})
		byStation[d.Station] = d
	}

	mergeStart := time.Now()
	observability.Pipeline().OnMergeStart(ctx, job.WaferID, len(sources))
	merged, err := engine.Merge(ctx, sources)
	changes := 0
	if merged != nil {
		changes = len(merged.Trace)
	}
	observability.Pipeline().OnMergeComplete(ctx, job.WaferID, changes, time.Since(mergeStart), err)
	if err != nil {
		return nil, fmt.Errorf("merge wafer %s: %w", job.WaferID, err)
	}
	result.Merge = merged
	result.Excluded = append(result.Excluded, merged.Excluded...)
	result.Timing.MergeTime = time.Since(mergeStart)

	logger.Info("merged stations",
		"order", merged.Order,
		"changes", len(merged.Trace),
		"duration", result.Timing.MergeTime)

	// Stage 3: Encode
	encodeStart := time.Now()
	result.Artifacts = Encode(ctx, job, byStation, merged, logger)
	result.Stats = wafer.ComputeStats(merged.Composite)
	result.Timing.EncodeTime = time.Since(encodeStart)

	logger.Info("encoded outputs",
		"formats", job.Formats,
		"yield", result.Stats.YieldString(),
		"duration", result.Timing.EncodeTime)

	if r.Store != nil && !job.NoArchive {
		run := storage.NewRun(job.WaferID, job.Name, merged)
		if err := r.Store.SaveRun(ctx, run); err != nil {
			logger.Warn("archive run failed", "error", err)
		} else {
			result.RunID = run.ID
			logger.Debug("archived run", "run_id", run.ID)
		}
	}

	return result, nil
}

// decodeAll decodes every source concurrently. Per-source failures become
// exclusions; only cancellation aborts.
func (r *Runner) decodeAll(ctx context.Context, job Job, result *Result, logger *log.Logger) ([]*Decoded, error) {
	type slot struct {
		d   *Decoded
		hit bool
		err error
	}
	slots := make([]slot, len(job.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeConcurrency)
	for i, spec := range job.Sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, hit, err := r.DecodeWithCacheInfo(gctx, spec)
			slots[i] = slot{d: d, hit: hit, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*Decoded
	for i, s := range slots {
		station := job.Sources[i].Station
		if s.err != nil {
			code := errors.GetCode(s.err)
			if code == "" {
				code = errors.ErrCodeFormat
			}
			logger.Warn("excluding station", "station", station, "code", code, "error", errors.UserMessage(s.err))
			result.Excluded = append(result.Excluded, overlay.Exclusion{
				Station: station,
				Code:    code,
				Reason:  errors.UserMessage(s.err),
			})
			continue
		}
		if s.hit {
			result.CacheInfo.DecodeHits++
		} else {
			result.CacheInfo.DecodeMisses++
		}
		load := s.d.Load()
		load.Cached = s.hit
		result.Loads = append(result.Loads, load)
		logger.Debug("loaded station",
			"station", station,
			"rows", load.Rows,
			"cols", load.Cols,
			"cached", s.hit)
		out = append(out, s.d)
	}
	return out, nil
}

// BatchItem is the outcome of one wafer in a batch.
type BatchItem struct {
	Job    Job
	Result *Result
	Err    error
}

// Batch executes jobs with at most parallel wafers in flight. A failing wafer
// is recorded on its item and never stops the others. Items are returned in
// job order.
func (r *Runner) Batch(ctx context.Context, jobs []Job, parallel int) []BatchItem {
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	items := make([]BatchItem, len(jobs))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, job := range jobs {
		items[i].Job = job
		g.Go(func() error {
			res, err := r.Execute(ctx, job)
			items[i].Result = res
			items[i].Err = err
			if err != nil {
				r.Logger.Error("wafer failed", "wafer", job.WaferID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Close releases resources held by the runner (cache and store).
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyLogger sets the runner's logger on the job if not already set.
func (r *Runner) applyLogger(job *Job) {
	if job.Logger == nil {
		job.Logger = r.Logger
	}
}
