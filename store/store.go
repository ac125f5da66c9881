// Package store persists curated tables so that witnesses can be looked up
// without repeating a search.
package store

import (
	"context"
	"math"
	"strings"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/gofrs/uuid"
)

// Run is the persisted outcome of one search.
type Run struct {
	ID      uuid.UUID
	Start   float64
	Length  int
	Entries []table.Entry
}

// Store saves runs and answers witness lookups. When two runs cover the same
// transformation the shorter witness is kept; on equal length the later run
// wins, matching the table's default tie policy.
type Store interface {
	Save(ctx context.Context, run Run) error
	Lookup(ctx context.Context, start, end float64) (string, bool, error)
	Close() error
}

// Open connects to the store named by dsn. Supported forms are
// "sqlite:<path>" (":memory:" for a private in-memory database) and
// "postgres://..." or "postgresql://..." URLs.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return nil, errz.New(errz.ErrUsage, "unsupported store %q", dsn)
	}
}

// validate rejects runs that no SQL float column can hold.
func validate(run Run) error {
	if !finite(run.Start) {
		return errz.New(errz.ErrStore, "run %s: non-finite start %g", run.ID, run.Start)
	}
	for _, e := range run.Entries {
		if !finite(e.Start) || !finite(e.End) {
			return errz.New(errz.ErrStore, "run %s: non-finite transformation %g -> %g (program %q)",
				run.ID, e.Start, e.End, e.Program)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
