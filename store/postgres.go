package store

import (
	"context"
	"errors"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id UUID PRIMARY KEY,
	start DOUBLE PRECISION NOT NULL,
	length INTEGER NOT NULL,
	entries INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS witnesses (
	start DOUBLE PRECISION NOT NULL,
	end_value DOUBLE PRECISION NOT NULL,
	program TEXT NOT NULL,
	run_id UUID NOT NULL REFERENCES runs(id),
	PRIMARY KEY (start, end_value)
);`

const postgresUpsert = `
INSERT INTO witnesses (start, end_value, program, run_id) VALUES ($1, $2, $3, $4)
ON CONFLICT (start, end_value) DO UPDATE
SET program = excluded.program, run_id = excluded.run_id
WHERE length(excluded.program) <= length(witnesses.program)`

// Postgres is a Store backed by a PostgreSQL database.
type Postgres struct {
	conn *pgx.Conn
}

// OpenPostgres connects to the database at dsn and creates the tables if
// needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, errz.Wrap(errz.ErrStore, err, "connecting to postgres")
	}
	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		conn.Close(ctx)
		return nil, errz.Wrap(errz.ErrStore, err, "creating tables")
	}
	return &Postgres{conn: conn}, nil
}

// Save writes all entries of run in a single transaction.
func (p *Postgres) Save(ctx context.Context, run Run) (err error) {
	if err := validate(run); err != nil {
		return err
	}
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return errz.Wrap(errz.ErrStore, err, "beginning transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = multierror.Append(err, rbErr)
		}
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO runs (id, start, length, entries) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET entries = excluded.entries`,
		run.ID.String(), run.Start, run.Length, len(run.Entries),
	); err != nil {
		return errz.Wrap(errz.ErrStore, err, "saving run %s", run.ID)
	}

	batch := &pgx.Batch{}
	for _, e := range run.Entries {
		batch.Queue(postgresUpsert, e.Start, e.End, e.Program, run.ID.String())
	}
	results := tx.SendBatch(ctx, batch)
	for range run.Entries {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return errz.Wrap(errz.ErrStore, err, "saving witnesses")
		}
	}
	if err := results.Close(); err != nil {
		return errz.Wrap(errz.ErrStore, err, "saving witnesses")
	}
	if err := tx.Commit(ctx); err != nil {
		return errz.Wrap(errz.ErrStore, err, "committing run %s", run.ID)
	}
	return nil
}

// Lookup returns the witness stored for (start, end).
func (p *Postgres) Lookup(ctx context.Context, start, end float64) (string, bool, error) {
	var program string
	err := p.conn.QueryRow(ctx,
		"SELECT program FROM witnesses WHERE start = $1 AND end_value = $2", start, end,
	).Scan(&program)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errz.Wrap(errz.ErrStore, err, "querying witness")
	}
	return program, true, nil
}

// Close closes the connection.
func (p *Postgres) Close() error {
	return p.conn.Close(context.Background())
}
