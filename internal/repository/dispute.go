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

var disputeColumns = []string{
	"id", "task_id", "task_contract", "worker", "task_creator",
	numericColumn("reward_amount"), numericColumn("worker_share"), "proof_of_work",
	"status", "worker_approved", "creator_approved", "vote_ids",
	"created_at", "resolved_at", "distributed_at",
}

// DisputeRepository handles database operations for disputes and admin votes.
type DisputeRepository struct {
	pool *pgxpool.Pool
}

// NewDisputeRepository creates a new DisputeRepository.
func NewDisputeRepository(pool *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{pool: pool}
}

func scanDispute(row pgx.Row) (*domain.Dispute, error) {
	var (
		d                         domain.Dispute
		rewardAmount, workerShare string
	)
	err := row.Scan(
		&d.ID,
		&d.TaskID,
		&d.TaskContract,
		&d.Worker,
		&d.TaskCreator,
		&rewardAmount,
		&workerShare,
		&d.ProofOfWork,
		&d.Status,
		&d.WorkerApproved,
		&d.CreatorApproved,
		&d.VoteIDs,
		&d.CreatedAt,
		&d.ResolvedAt,
		&d.DistributedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan dispute: %w", err)
	}
	if d.RewardAmount, err = parseNumeric("reward_amount", rewardAmount); err != nil {
		return nil, err
	}
	if d.WorkerShare, err = parseNumeric("worker_share", workerShare); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDispute retrieves a dispute by ID.
func (r *DisputeRepository) GetDispute(ctx context.Context, id string) (*domain.Dispute, error) {
	query, args, err := psql.
		Select(disputeColumns...).
		From("disputes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetDispute query for %s: %w", id, err)
	}

	return scanDispute(r.pool.QueryRow(ctx, query, args...))
}

// PutDispute upserts a dispute. vote_ids is only written on insert.
func (r *DisputeRepository) PutDispute(ctx context.Context, d *domain.Dispute) error {
	voteIDs := d.VoteIDs
	if voteIDs == nil {
		voteIDs = []string{}
	}

	query, args, err := psql.
		Insert("disputes").
		Columns(
			"id", "task_id", "task_contract", "worker", "task_creator",
			"reward_amount", "worker_share", "proof_of_work",
			"status", "worker_approved", "creator_approved", "vote_ids",
			"created_at", "resolved_at", "distributed_at",
		).
		Values(
			d.ID,
			d.TaskID,
			d.TaskContract,
			d.Worker,
			d.TaskCreator,
			numeric(d.RewardAmount),
			numeric(d.WorkerShare),
			d.ProofOfWork,
			d.Status,
			d.WorkerApproved,
			d.CreatorApproved,
			voteIDs,
			d.CreatedAt,
			d.ResolvedAt,
			d.DistributedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			task_id = EXCLUDED.task_id,
			task_contract = EXCLUDED.task_contract,
			worker = EXCLUDED.worker,
			task_creator = EXCLUDED.task_creator,
			reward_amount = EXCLUDED.reward_amount,
			worker_share = EXCLUDED.worker_share,
			proof_of_work = EXCLUDED.proof_of_work,
			status = EXCLUDED.status,
			worker_approved = EXCLUDED.worker_approved,
			creator_approved = EXCLUDED.creator_approved,
			created_at = EXCLUDED.created_at,
			resolved_at = EXCLUDED.resolved_at,
			distributed_at = EXCLUDED.distributed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutDispute query for %s: %w", d.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put dispute %s: %w", d.ID, err)
	}
	return nil
}

// ListDisputes retrieves disputes with filters and pagination.
func (r *DisputeRepository) ListDisputes(ctx context.Context, filter store.DisputeFilter) ([]*domain.Dispute, error) {
	qb := psql.Select(disputeColumns...).From("disputes")

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		qb = qb.Where(sq.Eq{"status": statuses})
	}
	if filter.Worker != "" {
		qb = qb.Where(sq.Eq{"worker": filter.Worker})
	}
	if filter.TaskCreator != "" {
		qb = qb.Where(sq.Eq{"task_creator": filter.TaskCreator})
	}

	qb = paginate(qb.OrderBy(orderBy(filter.Direction, "id::numeric")...), filter.Page)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListDisputes query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return disputes, nil
}

// AppendDisputeVote adds voteID to the dispute's vote list if absent.
func (r *DisputeRepository) AppendDisputeVote(ctx context.Context, disputeID, voteID string) error {
	where := sq.Eq{"id": disputeID}
	if err := ensureExists(ctx, r.pool, "disputes", where); err != nil {
		return err
	}
	return appendIfAbsent(ctx, r.pool, "disputes", "vote_ids", where, voteID)
}

// ClearDisputeVotes empties the dispute's vote list.
func (r *DisputeRepository) ClearDisputeVotes(ctx context.Context, disputeID string) error {
	query, args, err := psql.
		Update("disputes").
		Set("vote_ids", sq.Expr("'{}'")).
		Where(sq.Eq{"id": disputeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ClearDisputeVotes query for %s: %w", disputeID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("clear votes of dispute %s: %w", disputeID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
