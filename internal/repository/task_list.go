package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// ListTasks retrieves tasks with filters and pagination.
func (r *TaskRepository) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	qb := psql.Select(taskColumns...).From("tasks")

	// Apply kind filter
	if filter.Kind != "" {
		qb = qb.Where(sq.Eq{"kind": filter.Kind})
	}

	// Apply status filter
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		qb = qb.Where(sq.Eq{"status": statuses})
	}

	// Apply party filters
	if filter.Creator != "" {
		qb = qb.Where(sq.Eq{"creator": filter.Creator})
	}
	if filter.Worker != "" {
		qb = qb.Where(sq.Eq{"worker": filter.Worker})
	}

	qb = paginate(qb.OrderBy(orderBy(filter.Direction, "kind", "id::numeric")...), filter.Page)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListTasks query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return scanTasks(rows)
}
