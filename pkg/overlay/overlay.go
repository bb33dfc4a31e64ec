package overlay

import (
	"context"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Source is one station's decoded grid.
type Source struct {
	Station string
	Grid    wafer.Grid
}

// Exclusion records a source that did not take part in a merge.
type Exclusion struct {
	Station string      `json:"station"`
	Code    errors.Code `json:"code"`
	Reason  string      `json:"reason"`
}

// Step is the state after one source was laid over the composite.
type Step struct {
	Station   string      `json:"station"`
	Priority  int         `json:"priority"`
	Source    wafer.Grid  `json:"source"`
	Composite wafer.Grid  `json:"composite"`
	Changes   ChangeTrace `json:"changes"`
	Unaligned []int       `json:"unaligned,omitempty"`
}

// Result is the outcome of a merge.
type Result struct {
	Composite wafer.Grid  `json:"composite"`
	Trace     ChangeTrace `json:"trace"`
	Order     []string    `json:"order"`
	Policy    string      `json:"policy"`
	Excluded  []Exclusion `json:"excluded,omitempty"`

	// Initial is the seed grid; Steps holds one entry per further source.
	Initial wafer.Grid `json:"initial"`
	Steps   []Step     `json:"steps,omitempty"`
}

// Config configures an Engine.
type Config struct {
	Priority PriorityTable
	Policy   Policy
	Logger   *log.Logger
}

// Engine merges station grids under a fixed priority table and policy.
// An Engine holds no per-merge state and is safe for concurrent use.
type Engine struct {
	priority PriorityTable
	policy   Policy
	logger   *log.Logger
}

// NewEngine creates an engine. A nil Policy selects HigherBin and a nil
// Logger discards output.
func NewEngine(cfg Config) *Engine {
	if cfg.Policy == nil {
		cfg.Policy = HigherBin{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{
		priority: cfg.Priority.Clone(),
		policy:   cfg.Policy,
		logger:   cfg.Logger,
	}
}

// Policy returns the engine's replacement policy.
func (e *Engine) Policy() Policy { return e.policy }

// Priority returns a copy of the engine's priority table.
func (e *Engine) Priority() PriorityTable { return e.priority.Clone() }

type ranked struct {
	Source
	priority int
}

// Merge lays sources over each other in ascending priority order.
//
// Sources whose station has no priority or whose grid is empty are excluded
// with a warning. It fails with NO_VALID_SOURCES when nothing remains,
// INVALID_STATION when a station is listed twice, and INVALID_PRIORITY when
// two participating stations share a priority.
func (e *Engine) Merge(ctx context.Context, sources []Source) (*Result, error) {
	res := &Result{Policy: e.policy.Name()}

	seen := make(map[string]bool, len(sources))
	var active []ranked
	for _, s := range sources {
		if seen[s.Station] {
			return nil, errors.New(errors.ErrCodeInvalidStation, "station %q supplied more than once", s.Station)
		}
		seen[s.Station] = true

		p, ok := e.priority.Lookup(s.Station)
		if !ok {
			e.logger.Warn("station has no priority, excluding", "station", s.Station)
			res.Excluded = append(res.Excluded, Exclusion{
				Station: s.Station,
				Code:    errors.ErrCodeUnknownStation,
				Reason:  "no priority configured",
			})
			continue
		}
		if s.Grid.Empty() {
			e.logger.Warn("station has no data, excluding", "station", s.Station)
			res.Excluded = append(res.Excluded, Exclusion{
				Station: s.Station,
				Code:    errors.ErrCodeEmptySource,
				Reason:  "grid is empty",
			})
			continue
		}
		active = append(active, ranked{Source: s, priority: p})
	}
	if len(active) == 0 {
		return nil, errors.New(errors.ErrCodeNoValidSources, "no sources left to merge")
	}

	names := make([]string, len(active))
	for i, a := range active {
		names[i] = a.Station
	}
	if err := e.priority.Validate(names); err != nil {
		return nil, err
	}

	sort.Slice(active, func(i, j int) bool { return active[i].priority < active[j].priority })

	composite := active[0].Grid.Clone()
	res.Initial = composite.Clone()
	res.Order = append(res.Order, active[0].Station)

	for _, a := range active[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := e.apply(composite, a)
		res.Order = append(res.Order, a.Station)
		res.Trace = append(res.Trace, step.Changes...)
		res.Steps = append(res.Steps, step)

		e.logger.Debug("applied station",
			"station", a.Station,
			"priority", a.priority,
			"changes", len(step.Changes),
			"unaligned_rows", len(step.Unaligned))
	}

	res.Composite = composite
	return res, nil
}

// apply merges one source into composite in place.
func (e *Engine) apply(composite wafer.Grid, src ranked) Step {
	step := Step{
		Station:  src.Station,
		Priority: src.priority,
		Source:   src.Grid.Clone(),
	}

	rows := min(len(composite), len(src.Grid))
	for i := 0; i < rows; i++ {
		cur, in := composite[i], src.Grid[i]
		al := Align(cur, in, i)
		if !al.Aligned {
			step.Unaligned = append(step.Unaligned, i)
		}
		for j, c := range in {
			t := j - al.Offset
			if t < 0 || t >= len(cur) {
				continue
			}
			old := cur[t]
			if c == old || !e.policy.ShouldReplace(old, c) {
				continue
			}
			cur[t] = c
			step.Changes = append(step.Changes, Change{
				Station: src.Station,
				Row:     i,
				Col:     t,
				Old:     old,
				New:     c,
			})
		}
	}

	step.Composite = composite.Clone()
	return step
}

// Merge is a convenience wrapper that merges with the default policy.
func Merge(ctx context.Context, sources []Source, priority PriorityTable) (*Result, error) {
	return NewEngine(Config{Priority: priority}).Merge(ctx, sources)
}
