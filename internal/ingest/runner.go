// Package ingest feeds ordered contract events into the router: one worker
// per source stream, a raw event log, and per-stream checkpoints.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/metrics"
	"github.com/mtlprog/taskindexer/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	replayPageSize = 200
	streamBuffer   = 256
)

// Dispatcher applies one event.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt domain.Event) error
}

// EventSource produces events in stream order.
type EventSource interface {
	Stream(ctx context.Context, out chan<- domain.Event) error
}

// Runner drives events from a source through a Dispatcher.
type Runner struct {
	log        store.Log
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewRunner creates a Runner. m may be nil.
func NewRunner(log store.Log, dispatcher Dispatcher, m *metrics.Metrics) *Runner {
	return &Runner{
		log:        log,
		dispatcher: dispatcher,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunSource streams src through Run until src is exhausted.
func (r *Runner) RunSource(ctx context.Context, src EventSource) error {
	g, ctx := errgroup.WithContext(ctx)
	events := make(chan domain.Event, streamBuffer)

	g.Go(func() error {
		defer close(events)
		return src.Stream(ctx, events)
	})
	g.Go(func() error {
		return r.Run(ctx, events)
	})
	return g.Wait()
}

// Run consumes events until the channel is closed. Events are split by
// source; each source is processed in order by its own goroutine. The first
// store error cancels every worker and is returned.
func (r *Runner) Run(ctx context.Context, events <-chan domain.Event) error {
	g, ctx := errgroup.WithContext(ctx)

	streams := make(map[domain.Source]chan domain.Event, len(domain.Sources))
	for _, src := range domain.Sources {
		ch := make(chan domain.Event, streamBuffer)
		streams[src] = ch
		g.Go(func() error {
			return r.runStream(ctx, src, ch)
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range streams {
				close(ch)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case evt, ok := <-events:
				if !ok {
					return nil
				}
				ch, known := streams[evt.Source]
				if !known {
					slog.Warn("event for unknown stream dropped",
						"source", evt.Source,
						"event", evt.Name,
						"position", evt.Position().String(),
					)
					continue
				}
				select {
				case ch <- evt:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})

	return g.Wait()
}

// streamState tracks the last processed position of one stream.
type streamState struct {
	pos   domain.Position
	valid bool
}

func (st streamState) covers(pos domain.Position) bool {
	return st.valid && !st.pos.Less(pos)
}

func (r *Runner) loadCheckpoint(ctx context.Context, stream domain.Source) (streamState, error) {
	cp, err := r.log.GetCheckpoint(ctx, stream)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return streamState{}, nil
	case err != nil:
		return streamState{}, fmt.Errorf("load checkpoint for %s: %w", stream, err)
	}
	return streamState{pos: cp.Position, valid: true}, nil
}

func (r *Runner) runStream(ctx context.Context, stream domain.Source, events <-chan domain.Event) error {
	state, err := r.loadCheckpoint(ctx, stream)
	if err != nil {
		return err
	}
	if state.valid {
		slog.Info("stream resuming", "stream", stream, "checkpoint", state.pos.String())
	}

	processed, skipped := 0, 0
	for evt := range events {
		if state.covers(evt.Position()) {
			skipped++
			continue
		}
		if err := r.process(ctx, stream, evt); err != nil {
			return err
		}
		state = streamState{pos: evt.Position(), valid: true}
		processed++
	}

	slog.Info("stream drained",
		"stream", stream,
		"processed", processed,
		"already_applied", skipped,
	)
	return nil
}

// process records, applies and checkpoints one event.
func (r *Runner) process(ctx context.Context, stream domain.Source, evt domain.Event) error {
	if err := r.log.RecordEvent(ctx, evt); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if err := r.dispatcher.Dispatch(ctx, evt); err != nil {
		return err
	}
	return r.checkpoint(ctx, stream, evt.Position())
}

func (r *Runner) checkpoint(ctx context.Context, stream domain.Source, pos domain.Position) error {
	cp := domain.Checkpoint{Stream: stream, Position: pos, UpdatedAt: r.now()}
	if err := r.log.PutCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint for %s: %w", stream, err)
	}
	r.metrics.SetCheckpoint(string(stream), pos.Block)
	return nil
}

// Replay re-dispatches the recorded events of stream strictly after pos, in
// order, and advances the checkpoint if the log reaches past it. Handlers
// are idempotent, so replaying from any earlier position is safe.
func (r *Runner) Replay(ctx context.Context, stream domain.Source, after domain.Position) (int, error) {
	state, err := r.loadCheckpoint(ctx, stream)
	if err != nil {
		return 0, err
	}

	count := 0
	last := after
	for {
		events, err := r.log.ListEvents(ctx, stream, last, replayPageSize)
		if err != nil {
			return count, fmt.Errorf("list events for %s after %s: %w", stream, last, err)
		}
		if len(events) == 0 {
			break
		}
		for _, evt := range events {
			if err := r.dispatcher.Dispatch(ctx, evt); err != nil {
				return count, err
			}
			last = evt.Position()
			count++
		}
	}

	if count > 0 && !state.covers(last) {
		if err := r.checkpoint(ctx, stream, last); err != nil {
			return count, err
		}
	}
	slog.Info("stream replayed", "stream", stream, "events", count, "last", last.String())
	return count, nil
}

// ReplayAll replays every stream from the beginning of the log, one
// goroutine per stream.
func (r *Runner) ReplayAll(ctx context.Context) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	counts := make([]int, len(domain.Sources))
	for i, src := range domain.Sources {
		g.Go(func() error {
			n, err := r.Replay(ctx, src, domain.Position{})
			counts[i] = n
			return err
		})
	}
	err := g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}
