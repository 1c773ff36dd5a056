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

var bidColumns = []string{
	"id", "task_id", "bidder", numericColumn("amount"),
	"estimated_time", "description", "created_at",
}

// BidRepository handles database operations for bids.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var (
		bid    domain.Bid
		amount string
	)
	err := row.Scan(
		&bid.ID,
		&bid.TaskID,
		&bid.Bidder,
		&amount,
		&bid.EstimatedTime,
		&bid.Description,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan bid: %w", err)
	}
	if bid.Amount, err = parseNumeric("amount", amount); err != nil {
		return nil, err
	}
	return &bid, nil
}

func scanBids(rows pgx.Rows) ([]*domain.Bid, error) {
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return bids, nil
}

// GetBid retrieves a bid by its composite ID.
func (r *BidRepository) GetBid(ctx context.Context, id string) (*domain.Bid, error) {
	query, args, err := psql.
		Select(bidColumns...).
		From("bids").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetBid query for %s: %w", id, err)
	}

	return scanBid(r.pool.QueryRow(ctx, query, args...))
}

// PutBid upserts a bid.
func (r *BidRepository) PutBid(ctx context.Context, bid *domain.Bid) error {
	query, args, err := psql.
		Insert("bids").
		Columns("id", "task_id", "bidder", "amount", "estimated_time", "description", "created_at").
		Values(bid.ID, bid.TaskID, bid.Bidder, numeric(bid.Amount), bid.EstimatedTime, bid.Description, bid.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			estimated_time = EXCLUDED.estimated_time,
			description = EXCLUDED.description,
			created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutBid query for %s: %w", bid.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put bid %s: %w", bid.ID, err)
	}
	return nil
}

// ListBids retrieves the bids with the given IDs, preserving the order of ids.
func (r *BidRepository) ListBids(ctx context.Context, ids []string) ([]*domain.Bid, error) {
	if len(ids) == 0 {
		return []*domain.Bid{}, nil
	}

	query, args, err := psql.
		Select(bidColumns...).
		From("bids").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListBids query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	bids, err := scanBids(rows)
	if err != nil {
		return nil, err
	}
	return orderByIDs(ids, bids, func(b *domain.Bid) string { return b.ID }), nil
}

// ListBidsByBidder retrieves every bid placed by bidder, newest first.
func (r *BidRepository) ListBidsByBidder(ctx context.Context, bidder string) ([]*domain.Bid, error) {
	query, args, err := psql.
		Select(bidColumns...).
		From("bids").
		Where(sq.Eq{"bidder": bidder}).
		OrderBy(orderBy(store.Desc, "id")...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListBidsByBidder query for %s: %w", bidder, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids by bidder %s: %w", bidder, err)
	}
	return scanBids(rows)
}

// orderByIDs reorders items to follow ids, dropping ids with no item.
func orderByIDs[T any](ids []string, items []T, id func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[id(item)] = item
	}
	out := make([]T, 0, len(ids))
	for _, i := range ids {
		if item, ok := byID[i]; ok {
			out = append(out, item)
		}
	}
	return out
}
