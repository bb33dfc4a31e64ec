package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(t *testing.T, waferID string) *Run {
	t.Helper()
	res, err := overlay.Merge(context.Background(), []overlay.Source{
		{Station: "AOI", Grid: wafer.ParseRows("A.1", "1..")},
		{Station: "CP1", Grid: wafer.ParseRows("A.3", "1.5")},
	}, overlay.PriorityTable{"AOI": 1, "CP1": 2})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return NewRun(waferID, "W_"+waferID, res)
}

func TestSQLiteSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun(t, "01")

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}
	if !got.Grid().Equal(wafer.ParseRows("A.3", "1.5")) {
		t.Errorf("Grid() = %q", got.Grid().Strings())
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetRun(nope) error = %v, want NOT_FOUND", err)
	}
}

func TestSQLiteListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2025, 3, 25, 17, 0, 0, 0, time.UTC)
	var ids []string
	for i, w := range []string{"01", "02", "01"} {
		run := sampleRun(t, w)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		ids = append(ids, run.ID)
	}

	all, err := s.ListRuns(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("ListRuns() order = %v, want newest first", runIDs(all))
	}

	w01, err := s.ListRuns(ctx, ListOptions{WaferID: "01"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if diff := cmp.Diff([]string{ids[2], ids[0]}, runIDs(w01)); diff != "" {
		t.Errorf("ListRuns(wafer=01) mismatch (-want +got):\n%s", diff)
	}

	one, err := s.ListRuns(ctx, ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(one) != 1 {
		t.Errorf("ListRuns(limit=1) returned %d runs", len(one))
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun(t, "01")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	run.Name = "renamed"
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, _ := s.GetRun(ctx, run.ID)
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", got.Name)
	}
	all, _ := s.ListRuns(ctx, ListOptions{})
	if len(all) != 1 {
		t.Errorf("ListRuns() returned %d runs, want 1", len(all))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres"})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Open(postgres) error = %v, want INVALID_CONFIG", err)
	}
}

func TestOpenSQLite(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "a", "b.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLiteStore", s)
	}
}

func runIDs(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
