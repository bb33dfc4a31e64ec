// Package storage archives overlay runs so past results can be listed and
// fetched again.
//
// Two backends implement [Store]: [SQLiteStore] (pure Go, the default for
// CLI use) and [MongoStore] for shared deployments. Use [Open] to pick one
// from configuration.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// Run is one archived overlay result.
type Run struct {
	ID        string              `json:"id" bson:"_id"`
	WaferID   string              `json:"wafer_id" bson:"wafer_id"`
	Name      string              `json:"name" bson:"name"`
	Policy    string              `json:"policy" bson:"policy"`
	Order     []string            `json:"order" bson:"order"`
	Stats     wafer.Stats         `json:"stats" bson:"stats"`
	Composite []string            `json:"composite" bson:"composite"`
	Changes   overlay.ChangeTrace `json:"changes" bson:"changes"`
	Excluded  []overlay.Exclusion `json:"excluded,omitempty" bson:"excluded,omitempty"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
}

// NewRun builds a run record with a fresh ID from a merge result.
func NewRun(waferID, name string, res *overlay.Result) *Run {
	return &Run{
		ID:        uuid.NewString(),
		WaferID:   waferID,
		Name:      name,
		Policy:    res.Policy,
		Order:     res.Order,
		Stats:     wafer.ComputeStats(res.Composite),
		Composite: res.Composite.Strings(),
		Changes:   res.Trace,
		Excluded:  res.Excluded,
		CreatedAt: time.Now().UTC(),
	}
}

// Grid returns the composite as a grid.
func (r *Run) Grid() wafer.Grid {
	return wafer.ParseRows(r.Composite...)
}

// ListOptions filters ListRuns.
type ListOptions struct {
	WaferID string
	Limit   int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store persists runs.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	// GetRun fails with NOT_FOUND when id is unknown.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, opts ListOptions) ([]Run, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver   string
	DSN      string
	Database string
}

// Enabled reports whether a backend is configured.
func (c Config) Enabled() bool { return c.Driver != "" }

// Open creates the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.DSN)
	case DriverMongo:
		return NewMongoStore(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"unknown store driver %q (must be one of: %s, %s)", cfg.Driver, DriverSQLite, DriverMongo)
	}
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "run %s not found", id)
}
