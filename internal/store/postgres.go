package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresTxnAttempts = 16

const postgresSchema = `
CREATE TABLE IF NOT EXISTS records (
	path    text PRIMARY KEY,
	parent  text NOT NULL,
	value   bytea NOT NULL,
	version bigint NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS records_parent_idx ON records (parent);
`

// Postgres implements Store on a single key-value table. Transactions use a
// version-stamped read-modify-write: a row may only be replaced when its
// version still matches the one that was read.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the records table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Get performs a point read.
func (s *Postgres) Get(ctx context.Context, p Path) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM records WHERE path = $1`, p.String()).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return value, nil
}

// Set unconditionally overwrites the record.
func (s *Postgres) Set(ctx context.Context, p Path, value []byte) error {
	query := `
		INSERT INTO records (path, parent, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET value = $3, version = records.version + 1
	`
	if _, err := s.db.Exec(ctx, query, p.String(), p.Parent().String(), value); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Transact runs fn under a version-stamped compare-and-swap loop.
func (s *Postgres) Transact(ctx context.Context, p Path, fn TxnFunc) (bool, []byte, error) {
	key := p.String()

	for attempt := 0; attempt < postgresTxnAttempts; attempt++ {
		var current []byte
		var version int64
		exists := true
		err := s.db.QueryRow(ctx, `SELECT value, version FROM records WHERE path = $1`, key).
			Scan(&current, &version)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return false, nil, fmt.Errorf("failed to read record: %w", err)
			}
			exists = false
			current = nil
		}

		next, err := fn(current)
		if errors.Is(err, ErrAbort) {
			return false, nil, nil
		}
		if err != nil {
			return false, nil, err
		}

		if !exists {
			tag, err := s.db.Exec(ctx,
				`INSERT INTO records (path, parent, value) VALUES ($1, $2, $3) ON CONFLICT (path) DO NOTHING`,
				key, p.Parent().String(), next)
			if err != nil {
				return false, nil, fmt.Errorf("failed to insert record: %w", err)
			}
			if tag.RowsAffected() == 1 {
				return true, next, nil
			}
			continue
		}

		tag, err := s.db.Exec(ctx,
			`UPDATE records SET value = $2, version = version + 1 WHERE path = $1 AND version = $3`,
			key, next, version)
		if err != nil {
			return false, nil, fmt.Errorf("failed to update record: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return true, next, nil
		}
	}

	return false, nil, ErrTxnFailed
}

// Children returns the immediate children of a node.
func (s *Postgres) Children(ctx context.Context, p Path) (map[string][]byte, error) {
	prefix := p.String() + "/"
	rows, err := s.db.Query(ctx, `SELECT path, value FROM records WHERE parent = $1`, p.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	children := make(map[string][]byte)
	for rows.Next() {
		var path string
		var value []byte
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		children[path[len(prefix):]] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return children, nil
}
