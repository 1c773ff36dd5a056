package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool for database operations.
type DB struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// New creates a new database connection pool. One connection per ingest
// stream plus the HTTP readers is the expected load, so maxConns should be at
// least the number of streams.
func New(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected", "max_conns", config.MaxConns)

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
	slog.Info("database connection closed")
}

// projectionTables are rebuilt from chain_events by a replay.
var projectionTables = []string{
	"admin_votes", "admins", "disputes", "milestones", "bids", "tasks", "users", "checkpoints",
}

// ResetProjection truncates every projected table, keeping the raw event log.
func ResetProjection(ctx context.Context, pool *pgxpool.Pool) error {
	query := "TRUNCATE "
	for i, t := range projectionTables {
		if i > 0 {
			query += ", "
		}
		query += t
	}
	query += " CASCADE"

	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("truncate projection tables: %w", err)
	}

	slog.Info("projection reset", "tables", len(projectionTables))
	return nil
}
