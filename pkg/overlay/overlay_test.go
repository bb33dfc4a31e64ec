package overlay

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

func quietEngine(priority PriorityTable, p Policy) *Engine {
	return NewEngine(Config{Priority: priority, Policy: p, Logger: log.New(io.Discard)})
}

func TestMergeSingleSource(t *testing.T) {
	g := wafer.ParseRows("A.1", "1..")
	res, err := quietEngine(PriorityTable{"AOI": 1}, nil).Merge(context.Background(), []Source{{Station: "AOI", Grid: g}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !res.Composite.Equal(g) {
		t.Errorf("composite = %q, want %q", res.Composite.Strings(), g.Strings())
	}
	if len(res.Trace) != 0 {
		t.Errorf("trace = %v, want empty", res.Trace)
	}

	res.Composite[0][0] = '9'
	if g[0][0] != 'A' {
		t.Error("composite aliases the source grid")
	}
}

func TestMergeTwoStations(t *testing.T) {
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("A.1", "1..")},
		{Station: "CP1", Grid: wafer.ParseRows("A.3", "1.5")},
	}
	res, err := quietEngine(PriorityTable{"AOI": 1, "CP1": 2}, nil).Merge(context.Background(), sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if diff := cmp.Diff([]string{"A.3", "1.5"}, res.Composite.Strings()); diff != "" {
		t.Errorf("composite mismatch (-want +got):\n%s", diff)
	}
	want := ChangeTrace{
		{Station: "CP1", Row: 0, Col: 2, Old: '1', New: '3'},
		{Station: "CP1", Row: 1, Col: 2, Old: '.', New: '5'},
	}
	if diff := cmp.Diff(want, res.Trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"AOI", "CP1"}, res.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	a := Source{Station: "AOI", Grid: wafer.ParseRows("..S123", ".1.2.3", "..4")}
	b := Source{Station: "CP1", Grid: wafer.ParseRows("..S111", ".9.1.7", "...")}
	c := Source{Station: "CP2", Grid: wafer.ParseRows("..S5X1", ".2.2.2", "..1")}
	priority := PriorityTable{"AOI": 3, "CP1": 1, "CP2": 2}
	e := quietEngine(priority, nil)

	base, err := e.Merge(context.Background(), []Source{a, b, c})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for _, perm := range [][]Source{{c, b, a}, {b, a, c}, {a, c, b}} {
		got, err := e.Merge(context.Background(), perm)
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if diff := cmp.Diff(base.Composite.Strings(), got.Composite.Strings()); diff != "" {
			t.Errorf("composite depends on input order (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(base.Trace, got.Trace); diff != "" {
			t.Errorf("trace depends on input order (-want +got):\n%s", diff)
		}
	}
}

func TestMergeExcludesUnknownStation(t *testing.T) {
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("1")},
		{Station: "XRAY", Grid: wafer.ParseRows("9")},
	}
	res, err := quietEngine(PriorityTable{"AOI": 1}, nil).Merge(context.Background(), sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := res.Composite.Strings(); got[0] != "1" {
		t.Errorf("composite = %q, want [1]", got)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Station != "XRAY" || res.Excluded[0].Code != errors.ErrCodeUnknownStation {
		t.Errorf("excluded = %+v", res.Excluded)
	}
}

func TestMergeErrors(t *testing.T) {
	tests := []struct {
		name     string
		priority PriorityTable
		sources  []Source
		code     errors.Code
	}{
		{
			name:     "no sources",
			priority: PriorityTable{"AOI": 1},
			code:     errors.ErrCodeNoValidSources,
		},
		{
			name:     "all unknown",
			priority: PriorityTable{"AOI": 1},
			sources:  []Source{{Station: "CP1", Grid: wafer.ParseRows("1")}},
			code:     errors.ErrCodeNoValidSources,
		},
		{
			name:     "all empty",
			priority: PriorityTable{"AOI": 1},
			sources:  []Source{{Station: "AOI"}},
			code:     errors.ErrCodeNoValidSources,
		},
		{
			name:     "tied priorities",
			priority: PriorityTable{"AOI": 1, "CP1": 1},
			sources: []Source{
				{Station: "AOI", Grid: wafer.ParseRows("1")},
				{Station: "CP1", Grid: wafer.ParseRows("2")},
			},
			code: errors.ErrCodeInvalidPriority,
		},
		{
			name:     "duplicate station",
			priority: PriorityTable{"AOI": 1},
			sources: []Source{
				{Station: "AOI", Grid: wafer.ParseRows("1")},
				{Station: "AOI", Grid: wafer.ParseRows("2")},
			},
			code: errors.ErrCodeInvalidStation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietEngine(tt.priority, nil).Merge(context.Background(), tt.sources)
			if !errors.Is(err, tt.code) {
				t.Errorf("Merge() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestMergeTiedPriorityOnlyAmongParticipants(t *testing.T) {
	priority := PriorityTable{"AOI": 1, "CP1": 2, "CP2": 2}
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("1")},
		{Station: "CP1", Grid: wafer.ParseRows("2")},
	}
	if _, err := quietEngine(priority, nil).Merge(context.Background(), sources); err != nil {
		t.Errorf("Merge() error = %v, want nil", err)
	}
}

func TestMergeShorterSourceKeepsRows(t *testing.T) {
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("1", "1", "1")},
		{Station: "CP1", Grid: wafer.ParseRows("3")},
	}
	res, err := quietEngine(PriorityTable{"AOI": 1, "CP1": 2}, nil).Merge(context.Background(), sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if diff := cmp.Diff([]string{"3", "1", "1"}, res.Composite.Strings()); diff != "" {
		t.Errorf("composite mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeShiftedRows(t *testing.T) {
	// CP1 is shifted one column to the right; its anchors sit one column later.
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows(".S12", ".1.1")},
		{Station: "CP1", Grid: wafer.ParseRows("..S34", "..1.3")},
	}
	res, err := quietEngine(PriorityTable{"AOI": 1, "CP1": 2}, nil).Merge(context.Background(), sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if diff := cmp.Diff([]string{".S34", ".1.3"}, res.Composite.Strings()); diff != "" {
		t.Errorf("composite mismatch (-want +got):\n%s", diff)
	}
	if len(res.Steps) != 1 || len(res.Steps[0].Unaligned) != 0 {
		t.Errorf("steps = %+v, want one aligned step", res.Steps)
	}
}

func TestMergeNonPassPolicy(t *testing.T) {
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("5.3")},
		{Station: "CP1", Grid: wafer.ParseRows("1.2")},
	}
	res, err := quietEngine(PriorityTable{"AOI": 1, "CP1": 2}, NonPass{}).Merge(context.Background(), sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := res.Composite.Strings()[0]; got != "5.2" {
		t.Errorf("composite = %q, want %q", got, "5.2")
	}
	if res.Policy != PolicyNonPass {
		t.Errorf("policy = %q, want %q", res.Policy, PolicyNonPass)
	}
}

func TestMergeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("1")},
		{Station: "CP1", Grid: wafer.ParseRows("2")},
	}
	if _, err := quietEngine(PriorityTable{"AOI": 1, "CP1": 2}, nil).Merge(ctx, sources); err == nil {
		t.Error("Merge() on canceled context should fail")
	}
}

func TestWriteReport(t *testing.T) {
	sources := []Source{
		{Station: "AOI", Grid: wafer.ParseRows("A.1", "1..")},
		{Station: "CP1", Grid: wafer.ParseRows("A.3", "1.5")},
	}
	res, err := Merge(context.Background(), sources, PriorityTable{"AOI": 1, "CP1": 2})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	out := string(Report(res))
	for _, want := range []string{
		"Overlay order: AOI, CP1\n",
		"Initial map:\nA.1\n1..\n",
		"Apply map 1 (CP1, priority 2):\nA.3\n1.5\n",
		"2 positions changed\n",
		"(0,2): 1 -> 3\n(1,2): . -> 5\n",
		"Final map:\nA.3\n1.5\n",
		"Total Tested: 4\n",
		"Yield: 50.00%\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestNewEngineNilLogger(t *testing.T) {
	e := NewEngine(Config{Priority: PriorityFromOrder([]string{"AOI"})})
	if e.logger == nil || e.logger == log.Default() {
		t.Error("NewEngine() without a logger should not log to the default logger")
	}
	if e.Policy().Name() != PolicyHigherBin {
		t.Errorf("Policy() = %s, want %s", e.Policy().Name(), PolicyHigherBin)
	}
}
