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

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"kind", "id", "title", "description", "creator", "worker",
	numericColumn("reward"), "deadline", "status", "proof_of_work",
	"bid_ids", "milestone_ids", "created_at", "updated_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task   domain.Task
		reward string
	)
	err := row.Scan(
		&task.Kind,
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Creator,
		&task.Worker,
		&reward,
		&task.Deadline,
		&task.Status,
		&task.ProofOfWork,
		&task.BidIDs,
		&task.MilestoneIDs,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if task.Reward, err = parseNumeric("reward", reward); err != nil {
		return nil, err
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by kind and ID.
func (r *TaskRepository) GetTask(ctx context.Context, kind domain.TaskKind, id string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"kind": kind, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetTask query for %s/%s: %w", kind, id, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// PutTask upserts a task. bid_ids and milestone_ids are only written on
// insert; afterwards they are owned by the append methods.
func (r *TaskRepository) PutTask(ctx context.Context, task *domain.Task) error {
	bidIDs := task.BidIDs
	if bidIDs == nil {
		bidIDs = []string{}
	}
	milestoneIDs := task.MilestoneIDs
	if milestoneIDs == nil {
		milestoneIDs = []string{}
	}

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"kind", "id", "title", "description", "creator", "worker",
			"reward", "deadline", "status", "proof_of_work",
			"bid_ids", "milestone_ids", "created_at", "updated_at",
		).
		Values(
			task.Kind,
			task.ID,
			task.Title,
			task.Description,
			task.Creator,
			task.Worker,
			numeric(task.Reward),
			task.Deadline,
			task.Status,
			task.ProofOfWork,
			bidIDs,
			milestoneIDs,
			task.CreatedAt,
			task.UpdatedAt,
		).
		Suffix(`ON CONFLICT (kind, id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			creator = EXCLUDED.creator,
			worker = EXCLUDED.worker,
			reward = EXCLUDED.reward,
			deadline = EXCLUDED.deadline,
			status = EXCLUDED.status,
			proof_of_work = EXCLUDED.proof_of_work,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutTask query for %s/%s: %w", task.Kind, task.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put task %s/%s: %w", task.Kind, task.ID, err)
	}
	return nil
}

// appendIfAbsent appends value to an array column in one statement, leaving
// the row untouched when the value is already present.
func appendIfAbsent(ctx context.Context, pool *pgxpool.Pool, table, column string, where sq.Eq, value string) error {
	query, args, err := psql.
		Update(table).
		Set(column, sq.Expr("array_append("+column+", ?::text)", value)).
		Where(where).
		Where(sq.Expr("NOT (?::text = ANY("+column+"))", value)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append query for %s.%s: %w", table, column, err)
	}

	if _, err := pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append to %s.%s: %w", table, column, err)
	}
	return nil
}

// ensureExists returns store.ErrNotFound when no row matches where.
func ensureExists(ctx context.Context, pool *pgxpool.Pool, table string, where sq.Eq) error {
	query, args, err := psql.
		Select("1").
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build exists query for %s: %w", table, err)
	}

	var one int
	if err := pool.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("check %s exists: %w", table, err)
	}
	return nil
}

// AppendTaskBid adds bidID to a bidding task's bid list if absent.
func (r *TaskRepository) AppendTaskBid(ctx context.Context, taskID, bidID string) error {
	where := sq.Eq{"kind": domain.TaskKindBidding, "id": taskID}
	if err := ensureExists(ctx, r.pool, "tasks", where); err != nil {
		return err
	}
	return appendIfAbsent(ctx, r.pool, "tasks", "bid_ids", where, bidID)
}

// AppendTaskMilestone adds milestoneID to a milestone task's list if absent.
func (r *TaskRepository) AppendTaskMilestone(ctx context.Context, taskID, milestoneID string) error {
	where := sq.Eq{"kind": domain.TaskKindMilestone, "id": taskID}
	if err := ensureExists(ctx, r.pool, "tasks", where); err != nil {
		return err
	}
	return appendIfAbsent(ctx, r.pool, "tasks", "milestone_ids", where, milestoneID)
}
