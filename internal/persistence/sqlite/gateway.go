// Package sqlite persists the wholesale state snapshot. Each collection is
// stored as one JSON document row and every checkpoint rewrites all of them
// inside a single transaction, so a restart always sees a consistent state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/example/campus-pingpong/internal/persistence"
)

const (
	collectionUsers    = "users"
	collectionBookings = "bookings"
	collectionRatings  = "ratings"
	collectionCounters = "counters"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name     TEXT PRIMARY KEY,
	document TEXT NOT NULL
);
`

// Gateway reads and writes the durable snapshot through a SQLite database.
type Gateway struct {
	db *sql.DB
}

// Open connects to the database at dsn and bootstraps the schema.
func Open(dsn string) (*Gateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	// The driver serializes writers itself; a single connection avoids
	// SQLITE_BUSY churn under the service's serialized mutation model.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}
	return &Gateway{db: db}, nil
}

// Close releases the database handle.
func (g *Gateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Ping verifies the database connection.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Load reads every collection document and assembles the snapshot. Missing
// documents yield empty collections so a fresh database loads cleanly.
func (g *Gateway) Load(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot

	if err := g.loadDocument(ctx, collectionUsers, &snapshot.Users); err != nil {
		return persistence.Snapshot{}, err
	}
	if err := g.loadDocument(ctx, collectionBookings, &snapshot.Bookings); err != nil {
		return persistence.Snapshot{}, err
	}
	if err := g.loadDocument(ctx, collectionRatings, &snapshot.Ratings); err != nil {
		return persistence.Snapshot{}, err
	}
	if err := g.loadDocument(ctx, collectionCounters, &snapshot.Counters); err != nil {
		return persistence.Snapshot{}, err
	}
	return snapshot, nil
}

// Save rewrites every collection document in one transaction.
func (g *Gateway) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	return g.withTransaction(ctx, func(tx *sql.Tx) error {
		if err := saveDocument(ctx, tx, collectionUsers, snapshot.Users); err != nil {
			return err
		}
		if err := saveDocument(ctx, tx, collectionBookings, snapshot.Bookings); err != nil {
			return err
		}
		if err := saveDocument(ctx, tx, collectionRatings, snapshot.Ratings); err != nil {
			return err
		}
		return saveDocument(ctx, tx, collectionCounters, snapshot.Counters)
	})
}

func (g *Gateway) loadDocument(ctx context.Context, name string, target any) error {
	var document string
	err := g.db.QueryRowContext(ctx, `SELECT document FROM collections WHERE name = ?`, name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(document), target); err != nil {
		return fmt.Errorf("sqlite: decode %s: %w", name, err)
	}
	return nil
}

func saveDocument(ctx context.Context, tx *sql.Tx, name string, value any) error {
	document, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (name, document) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document`,
		name, string(document))
	if err != nil {
		return fmt.Errorf("sqlite: save %s: %w", name, err)
	}
	return nil
}

func (g *Gateway) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}
