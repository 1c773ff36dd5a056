package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

var milestoneColumns = []string{
	"id", "task_id", "idx", "description", numericColumn("reward"), "paid", "completed_at",
	"proof", "proof_submitted", "proof_approved", "proof_submitted_at", "created_at",
}

// MilestoneRepository handles database operations for milestones.
type MilestoneRepository struct {
	pool *pgxpool.Pool
}

// NewMilestoneRepository creates a new MilestoneRepository.
func NewMilestoneRepository(pool *pgxpool.Pool) *MilestoneRepository {
	return &MilestoneRepository{pool: pool}
}

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var (
		m      domain.Milestone
		idx    int32
		reward string
	)
	err := row.Scan(
		&m.ID,
		&m.TaskID,
		&idx,
		&m.Description,
		&reward,
		&m.Paid,
		&m.CompletedAt,
		&m.WorkProof.Proof,
		&m.WorkProof.Submitted,
		&m.WorkProof.Approved,
		&m.WorkProof.SubmittedAt,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan milestone: %w", err)
	}
	m.Index = uint32(idx)
	if m.Reward, err = parseNumeric("reward", reward); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMilestone retrieves a milestone by its composite ID.
func (r *MilestoneRepository) GetMilestone(ctx context.Context, id string) (*domain.Milestone, error) {
	query, args, err := psql.
		Select(milestoneColumns...).
		From("milestones").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetMilestone query for %s: %w", id, err)
	}

	return scanMilestone(r.pool.QueryRow(ctx, query, args...))
}

// PutMilestone upserts a milestone.
func (r *MilestoneRepository) PutMilestone(ctx context.Context, m *domain.Milestone) error {
	query, args, err := psql.
		Insert("milestones").
		Columns(
			"id", "task_id", "idx", "description", "reward", "paid", "completed_at",
			"proof", "proof_submitted", "proof_approved", "proof_submitted_at", "created_at",
		).
		Values(
			m.ID,
			m.TaskID,
			int32(m.Index),
			m.Description,
			numeric(m.Reward),
			m.Paid,
			m.CompletedAt,
			m.WorkProof.Proof,
			m.WorkProof.Submitted,
			m.WorkProof.Approved,
			m.WorkProof.SubmittedAt,
			m.CreatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			reward = EXCLUDED.reward,
			paid = EXCLUDED.paid,
			completed_at = EXCLUDED.completed_at,
			proof = EXCLUDED.proof,
			proof_submitted = EXCLUDED.proof_submitted,
			proof_approved = EXCLUDED.proof_approved,
			proof_submitted_at = EXCLUDED.proof_submitted_at,
			created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutMilestone query for %s: %w", m.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put milestone %s: %w", m.ID, err)
	}
	return nil
}

// ListMilestones retrieves a task's milestones ordered by index.
func (r *MilestoneRepository) ListMilestones(ctx context.Context, taskID string) ([]*domain.Milestone, error) {
	query, args, err := psql.
		Select(milestoneColumns...).
		From("milestones").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("idx ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListMilestones query for %s: %w", taskID, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list milestones for %s: %w", taskID, err)
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return milestones, nil
}
