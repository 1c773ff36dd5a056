package repository

import (
	"context"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// Stats retrieves aggregate counts over all projected entities.
func (s *PostgresStore) Stats(ctx context.Context) (*store.Stats, error) {
	stats := store.NewStats()

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.Users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	// Tasks by kind and status (current state)
	rows, err := s.pool.Query(ctx, `
		SELECT kind, status, COUNT(*)
		FROM tasks
		GROUP BY kind, status
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind   domain.TaskKind
			status domain.TaskStatus
			count  int
		)
		if err := rows.Scan(&kind, &status, &count); err != nil {
			return nil, fmt.Errorf("scan task status count: %w", err)
		}
		stats.AddTask(kind, status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task status rows: %w", err)
	}

	disputeRows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM disputes
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("query disputes by status: %w", err)
	}
	defer disputeRows.Close()

	for disputeRows.Next() {
		var (
			status domain.DisputeStatus
			count  int
		)
		if err := disputeRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan dispute status count: %w", err)
		}
		stats.Disputes[status] = count
	}
	if err := disputeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispute status rows: %w", err)
	}

	var stake string
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(stake_amount), 0)::text
		FROM admins
		WHERE is_active
	`).Scan(&stats.ActiveAdmins, &stake)
	if err != nil {
		return nil, fmt.Errorf("count active admins: %w", err)
	}
	if stats.TotalAdminStake, err = parseNumeric("stake_amount", stake); err != nil {
		return nil, err
	}

	return stats, nil
}
