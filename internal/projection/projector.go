// Package projection applies contract events to the entity store.
//
// Each handler is a pure function of (current entities, event) and is safe
// to apply more than once: creations are skipped when the entity exists,
// list appends are set-like, and transitions already taken are rejected as
// invalid. Handlers return domain.ErrMissingParent, ErrInvalidTransition or
// ErrDuplicateCreation for events that must be skipped, and any other error
// when the store fails.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/identity"
	"github.com/mtlprog/taskindexer/internal/store"
)

// Projector holds the store and identity resolver shared by all handlers.
type Projector struct {
	store    store.Store
	identity *identity.Resolver
}

// NewProjector creates a Projector writing to st.
func NewProjector(st store.Store) *Projector {
	return &Projector{
		store:    st,
		identity: identity.NewResolver(st),
	}
}

// taskKind returns the task kind of the contract that emitted evt.
func taskKind(evt domain.Event) (domain.TaskKind, error) {
	kind, ok := evt.Source.TaskKind()
	if !ok {
		return "", fmt.Errorf("%w: source %q carries no tasks", domain.ErrUnknownKind, evt.Source)
	}
	return kind, nil
}

// getTask loads a task, mapping absence to ErrMissingParent.
func (p *Projector) getTask(ctx context.Context, kind domain.TaskKind, id string) (*domain.Task, error) {
	task, err := p.store.GetTask(ctx, kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: task %s/%s", domain.ErrMissingParent, kind, id)
		}
		return nil, fmt.Errorf("get task %s/%s: %w", kind, id, err)
	}
	return task, nil
}

// activeTask loads the task referenced by an event and rejects events on a
// task that already reached a terminal status.
func (p *Projector) activeTask(ctx context.Context, evt domain.Event, rawID json.Number) (*domain.Task, error) {
	kind, err := taskKind(evt)
	if err != nil {
		return nil, err
	}
	task, err := p.getTask(ctx, kind, domain.EntityID(rawID))
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s on %s task %s/%s",
			domain.ErrInvalidTransition, evt.Name, task.Status, task.Kind, task.ID)
	}
	return task, nil
}

// requireStatus fails with ErrInvalidTransition unless task is in one of allowed.
func requireStatus(evt domain.Event, task *domain.Task, allowed ...domain.TaskStatus) error {
	for _, s := range allowed {
		if task.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s task %s/%s",
		domain.ErrInvalidTransition, evt.Name, task.Status, task.Kind, task.ID)
}

// transition moves task to next if the state machine allows it.
func transition(task *domain.Task, next domain.TaskStatus) error {
	if !task.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: task %s/%s %s -> %s",
			domain.ErrInvalidTransition, task.Kind, task.ID, task.Status, next)
	}
	task.Status = next
	return nil
}

// saveTask stamps the task with the event's block time and writes it.
func (p *Projector) saveTask(ctx context.Context, evt domain.Event, task *domain.Task) error {
	task.UpdatedAt = evt.Time()
	if err := p.store.PutTask(ctx, task); err != nil {
		return fmt.Errorf("save task %s/%s: %w", task.Kind, task.ID, err)
	}
	return nil
}
