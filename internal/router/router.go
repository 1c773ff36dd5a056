// Package router dispatches decoded contract events to typed projection
// handlers, serializing handlers that touch the same entity.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/metrics"
)

type route struct {
	source domain.Source
	name   domain.EventName
}

// entry decodes params once and hands back the entity key and apply function.
type entry func(evt domain.Event) (key string, apply func(context.Context) error, err error)

// Router routes events by (source, event name).
type Router struct {
	handlers map[route]entry
	routes   []route
	locks    *KeyedMutex
	metrics  *metrics.Metrics
}

// New creates an empty Router. m may be nil.
func New(m *metrics.Metrics) *Router {
	return &Router{
		handlers: make(map[route]entry),
		locks:    NewKeyedMutex(),
		metrics:  m,
	}
}

// Handle registers a typed handler for one event of one source. Params are
// JSON-decoded into P and normalized before key and fn see them.
func Handle[P any, PP interface {
	*P
	domain.Normalizer
}](
	r *Router,
	source domain.Source,
	name domain.EventName,
	key func(evt domain.Event, params PP) string,
	fn func(ctx context.Context, evt domain.Event, params PP) error,
) {
	rt := route{source: source, name: name}
	r.handlers[rt] = func(evt domain.Event) (string, func(context.Context) error, error) {
		params := PP(new(P))
		if err := json.Unmarshal(evt.Params, params); err != nil {
			return "", nil, fmt.Errorf("%w: decode %s params: %v", domain.ErrInvalidEvent, name, err)
		}
		if err := params.Normalize(); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidEvent, name, err)
		}
		return key(evt, params), func(ctx context.Context) error {
			return fn(ctx, evt, params)
		}, nil
	}
	r.routes = append(r.routes, rt)
}

// Handles reports whether an event of name from source has a handler.
func (r *Router) Handles(source domain.Source, name domain.EventName) bool {
	_, ok := r.handlers[route{source: source, name: name}]
	return ok
}

// Routes returns the number of registered handlers.
func (r *Router) Routes() int {
	return len(r.routes)
}

// Dispatch applies evt. Unknown and malformed events are dropped, events that
// fail a consistency guard are skipped; both are logged and return nil. Any
// other handler error is returned.
func (r *Router) Dispatch(ctx context.Context, evt domain.Event) error {
	start := time.Now()
	outcome, err := r.dispatch(ctx, evt)
	r.metrics.ObserveEvent(string(evt.Source), string(evt.Name), outcome, time.Since(start).Seconds())
	return err
}

func (r *Router) dispatch(ctx context.Context, evt domain.Event) (metrics.Outcome, error) {
	h, ok := r.handlers[route{source: evt.Source, name: evt.Name}]
	if !ok {
		slog.Warn("unknown event dropped",
			"source", evt.Source,
			"event", evt.Name,
			"position", evt.Position().String(),
		)
		return metrics.OutcomeDropped, nil
	}

	key, apply, err := h(evt)
	if err != nil {
		slog.Warn("malformed event dropped",
			"source", evt.Source,
			"event", evt.Name,
			"position", evt.Position().String(),
			"error", err,
		)
		return metrics.OutcomeDropped, nil
	}

	unlock := r.locks.Lock(key)
	err = apply(ctx)
	unlock()

	switch {
	case err == nil:
		slog.Debug("event applied",
			"source", evt.Source,
			"event", evt.Name,
			"entity", key,
			"position", evt.Position().String(),
		)
		return metrics.OutcomeApplied, nil
	case domain.IsSkippable(err):
		slog.Info("event skipped",
			"source", evt.Source,
			"event", evt.Name,
			"entity", key,
			"position", evt.Position().String(),
			"reason", err.Error(),
		)
		return metrics.OutcomeSkipped, nil
	default:
		return metrics.OutcomeFailed, fmt.Errorf("apply %s %s at %s: %w", evt.Source, evt.Name, evt.Position(), err)
	}
}
