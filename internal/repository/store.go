package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/shopspring/decimal"
)

// PostgresStore implements store.Store on PostgreSQL. Each method issues a
// single statement, so every entity write is atomic without an explicit
// transaction.
type PostgresStore struct {
	*UserRepository
	*TaskRepository
	*BidRepository
	*MilestoneRepository
	*DisputeRepository
	*AdminRepository
	*ChainEventRepository

	pool *pgxpool.Pool
}

var _ store.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgresStore over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		UserRepository:       NewUserRepository(pool),
		TaskRepository:       NewTaskRepository(pool),
		BidRepository:        NewBidRepository(pool),
		MilestoneRepository:  NewMilestoneRepository(pool),
		DisputeRepository:    NewDisputeRepository(pool),
		AdminRepository:      NewAdminRepository(pool),
		ChainEventRepository: NewChainEventRepository(pool),
		pool:                 pool,
	}
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// numeric binds a decimal as text and casts it server-side, so amounts never
// pass through a float.
func numeric(d decimal.Decimal) sq.Sqlizer {
	return sq.Expr("CAST(?::text AS NUMERIC)", d.String())
}

// numericColumn selects a NUMERIC column as text for lossless scanning.
func numericColumn(name string) string {
	return name + "::text"
}

// parseNumeric converts a scanned NUMERIC text value to a decimal.
func parseNumeric(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

// orderBy returns the ORDER BY clauses for created_at listings.
func orderBy(dir store.Direction, tieBreak ...string) []string {
	d := "DESC"
	if dir == store.Asc {
		d = "ASC"
	}
	clauses := []string{"created_at " + d}
	for _, col := range tieBreak {
		clauses = append(clauses, col+" "+d)
	}
	return clauses
}

// paginate applies first/skip to a select builder.
func paginate(qb sq.SelectBuilder, p store.Page) sq.SelectBuilder {
	qb = qb.Limit(uint64(p.Limit()))
	if p.Skip > 0 {
		qb = qb.Offset(uint64(p.Skip))
	}
	return qb
}
