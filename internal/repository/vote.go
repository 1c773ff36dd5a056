package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

var voteColumns = []string{"id", "dispute_id", "admin", numericColumn("worker_share"), "created_at"}

func scanVote(row pgx.Row) (*domain.AdminVote, error) {
	var (
		v     domain.AdminVote
		share string
	)
	if err := row.Scan(&v.ID, &v.DisputeID, &v.Admin, &share, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan vote: %w", err)
	}
	var err error
	if v.WorkerShare, err = parseNumeric("worker_share", share); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVote retrieves an admin vote by its composite ID.
func (r *DisputeRepository) GetVote(ctx context.Context, id string) (*domain.AdminVote, error) {
	query, args, err := psql.
		Select(voteColumns...).
		From("admin_votes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetVote query for %s: %w", id, err)
	}

	return scanVote(r.pool.QueryRow(ctx, query, args...))
}

// PutVote upserts an admin vote. A later round's vote replaces the earlier one.
func (r *DisputeRepository) PutVote(ctx context.Context, v *domain.AdminVote) error {
	query, args, err := psql.
		Insert("admin_votes").
		Columns("id", "dispute_id", "admin", "worker_share", "created_at").
		Values(v.ID, v.DisputeID, v.Admin, numeric(v.WorkerShare), v.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			worker_share = EXCLUDED.worker_share,
			created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutVote query for %s: %w", v.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put vote %s: %w", v.ID, err)
	}
	return nil
}

// ListVotes retrieves the votes with the given IDs, preserving the order of ids.
func (r *DisputeRepository) ListVotes(ctx context.Context, ids []string) ([]*domain.AdminVote, error) {
	if len(ids) == 0 {
		return []*domain.AdminVote{}, nil
	}

	query, args, err := psql.
		Select(voteColumns...).
		From("admin_votes").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListVotes query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.AdminVote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return orderByIDs(ids, votes, func(v *domain.AdminVote) string { return v.ID }), nil
}
