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

// ChainEventRepository handles the raw event log and stream checkpoints.
type ChainEventRepository struct {
	pool *pgxpool.Pool
}

// NewChainEventRepository creates a new ChainEventRepository.
func NewChainEventRepository(pool *pgxpool.Pool) *ChainEventRepository {
	return &ChainEventRepository{pool: pool}
}

// RecordEvent appends evt to the log. Re-recording a position is a no-op.
func (r *ChainEventRepository) RecordEvent(ctx context.Context, evt domain.Event) error {
	params := []byte(evt.Params)
	if len(params) == 0 {
		params = []byte("{}")
	}

	query, args, err := psql.
		Insert("chain_events").
		Columns("stream", "block_number", "log_index", "contract", "name", "block_timestamp", "tx_hash", "params").
		Values(evt.Source, int64(evt.BlockNumber), int32(evt.LogIndex), evt.ContractAddress, evt.Name, evt.BlockTimestamp, evt.TxHash, string(params)).
		Suffix("ON CONFLICT (stream, block_number, log_index) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build RecordEvent query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record event %s %s@%s: %w", evt.Source, evt.Name, evt.Position(), err)
	}
	return nil
}

// ListEvents retrieves up to limit events of stream strictly after pos.
func (r *ChainEventRepository) ListEvents(ctx context.Context, stream domain.Source, after domain.Position, limit int) ([]domain.Event, error) {
	qb := psql.
		Select("stream", "block_number", "log_index", "contract", "name", "block_timestamp", "tx_hash", "params::text").
		From("chain_events").
		Where(sq.Eq{"stream": stream}).
		Where(sq.Expr("(block_number, log_index) > (?, ?)", int64(after.Block), int32(after.LogIndex))).
		OrderBy("block_number ASC", "log_index ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListEvents query for %s: %w", stream, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", stream, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			evt         domain.Event
			blockNumber int64
			logIndex    int32
			params      string
		)
		err := rows.Scan(
			&evt.Source,
			&blockNumber,
			&logIndex,
			&evt.ContractAddress,
			&evt.Name,
			&evt.BlockTimestamp,
			&evt.TxHash,
			&params,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chain event: %w", err)
		}
		evt.BlockNumber = uint64(blockNumber)
		evt.LogIndex = uint32(logIndex)
		evt.Params = []byte(params)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// GetCheckpoint retrieves the last processed position of stream.
func (r *ChainEventRepository) GetCheckpoint(ctx context.Context, stream domain.Source) (*domain.Checkpoint, error) {
	query, args, err := psql.
		Select("stream", "block_number", "log_index", "updated_at").
		From("checkpoints").
		Where(sq.Eq{"stream": stream}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetCheckpoint query for %s: %w", stream, err)
	}

	var (
		cp          domain.Checkpoint
		blockNumber int64
		logIndex    int32
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(&cp.Stream, &blockNumber, &logIndex, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint for %s: %w", stream, err)
	}
	cp.Position = domain.Position{Block: uint64(blockNumber), LogIndex: uint32(logIndex)}
	return &cp, nil
}

// PutCheckpoint upserts the checkpoint of a stream.
func (r *ChainEventRepository) PutCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	query, args, err := psql.
		Insert("checkpoints").
		Columns("stream", "block_number", "log_index", "updated_at").
		Values(cp.Stream, int64(cp.Position.Block), int32(cp.Position.LogIndex), cp.UpdatedAt).
		Suffix(`ON CONFLICT (stream) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			log_index = EXCLUDED.log_index,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutCheckpoint query for %s: %w", cp.Stream, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put checkpoint for %s: %w", cp.Stream, err)
	}
	return nil
}
