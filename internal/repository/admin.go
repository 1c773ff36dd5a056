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

var adminColumns = []string{"address", numericColumn("stake_amount"), "is_active", "created_at", "updated_at"}

// AdminRepository handles database operations for dispute admins.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var (
		a     domain.Admin
		stake string
	)
	if err := row.Scan(&a.Address, &stake, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	var err error
	if a.StakeAmount, err = parseNumeric("stake_amount", stake); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAdmin retrieves an admin by address.
func (r *AdminRepository) GetAdmin(ctx context.Context, address string) (*domain.Admin, error) {
	query, args, err := psql.
		Select(adminColumns...).
		From("admins").
		Where(sq.Eq{"address": address}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetAdmin query for %s: %w", address, err)
	}

	return scanAdmin(r.pool.QueryRow(ctx, query, args...))
}

// PutAdmin upserts an admin.
func (r *AdminRepository) PutAdmin(ctx context.Context, a *domain.Admin) error {
	query, args, err := psql.
		Insert("admins").
		Columns("address", "stake_amount", "is_active", "created_at", "updated_at").
		Values(a.Address, numeric(a.StakeAmount), a.IsActive, a.CreatedAt, a.UpdatedAt).
		Suffix(`ON CONFLICT (address) DO UPDATE SET
			stake_amount = EXCLUDED.stake_amount,
			is_active = EXCLUDED.is_active,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutAdmin query for %s: %w", a.Address, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put admin %s: %w", a.Address, err)
	}
	return nil
}

// ListAdmins retrieves admins with pagination.
func (r *AdminRepository) ListAdmins(ctx context.Context, filter store.AdminFilter) ([]*domain.Admin, error) {
	qb := psql.Select(adminColumns...).From("admins")
	if filter.ActiveOnly {
		qb = qb.Where(sq.Eq{"is_active": true})
	}
	qb = paginate(qb.OrderBy(orderBy(filter.Direction, "address")...), filter.Page)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListAdmins query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return admins, nil
}
