// Package repository implements the PostgreSQL-backed store for payments,
// trainers and clients. The store is the single authority for record
// status: every state transition is a conditional UPDATE that checks the
// currently persisted status, so a stale caller can never revert a
// completed payment or re-trigger a transition that already happened.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage wraps the database handle and implements the repositories used
// by the services.
type Storage struct {
	DB *sql.DB
}

// New opens a connection to PostgreSQL and verifies it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady verifies that migrations have produced the payments
// table before the service starts accepting traffic.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'payments'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table payments missing or query error: %w", err)
	}
	return nil
}
