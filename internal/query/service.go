// Package query is the read side of the projection: lookups and filtered,
// paginated listings over the entity store.
package query

import (
	"context"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// TaskView is a task with its kind-specific children resolved.
type TaskView struct {
	Task       *domain.Task
	Bids       []*domain.Bid
	Milestones []*domain.Milestone
}

// DisputeView is a dispute with its current round of votes resolved.
type DisputeView struct {
	Dispute *domain.Dispute
	Votes   []*domain.AdminVote
}

// TaskQuery filters a task listing. Empty fields do not filter.
type TaskQuery struct {
	Kind     string
	Statuses []string
	Creator  string
	Worker   string
	PageParams
}

// DisputeQuery filters a dispute listing.
type DisputeQuery struct {
	Statuses    []string
	Worker      string
	TaskCreator string
	PageParams
}

// Service answers read queries.
type Service struct {
	store store.Store
}

// NewService creates a new Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// GetTask returns a task with its bids or milestones.
func (s *Service) GetTask(ctx context.Context, kind, id string) (*TaskView, error) {
	k, err := domain.ParseTaskKind(kind)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, k, id)
	if err != nil {
		return nil, fmt.Errorf("task %s/%s: %w", k, id, err)
	}

	view := &TaskView{Task: task, Bids: []*domain.Bid{}, Milestones: []*domain.Milestone{}}
	switch task.Kind {
	case domain.TaskKindBidding:
		if view.Bids, err = s.store.ListBids(ctx, task.BidIDs); err != nil {
			return nil, fmt.Errorf("bids of task %s: %w", id, err)
		}
	case domain.TaskKindMilestone:
		if view.Milestones, err = s.store.ListMilestones(ctx, task.ID); err != nil {
			return nil, fmt.Errorf("milestones of task %s: %w", id, err)
		}
	}
	return view, nil
}

// ListTasks returns tasks matching q, newest first unless q asks otherwise.
func (s *Service) ListTasks(ctx context.Context, q TaskQuery) ([]*domain.Task, error) {
	filter := store.TaskFilter{}
	var err error

	if q.Kind != "" {
		if filter.Kind, err = domain.ParseTaskKind(q.Kind); err != nil {
			return nil, err
		}
	}
	if filter.Statuses, err = parseTaskStatuses(q.Statuses); err != nil {
		return nil, err
	}
	if filter.Creator, err = optionalAddress("creator", q.Creator); err != nil {
		return nil, err
	}
	if filter.Worker, err = optionalAddress("worker", q.Worker); err != nil {
		return nil, err
	}
	if filter.Page, err = q.page(); err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetDispute returns a dispute with the votes of its current round.
func (s *Service) GetDispute(ctx context.Context, id string) (*DisputeView, error) {
	d, err := s.store.GetDispute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dispute %s: %w", id, err)
	}
	votes, err := s.store.ListVotes(ctx, d.VoteIDs)
	if err != nil {
		return nil, fmt.Errorf("votes of dispute %s: %w", id, err)
	}
	return &DisputeView{Dispute: d, Votes: votes}, nil
}

// ListDisputes returns disputes matching q.
func (s *Service) ListDisputes(ctx context.Context, q DisputeQuery) ([]*domain.Dispute, error) {
	filter := store.DisputeFilter{}
	var err error

	if filter.Statuses, err = parseDisputeStatuses(q.Statuses); err != nil {
		return nil, err
	}
	if filter.Worker, err = optionalAddress("worker", q.Worker); err != nil {
		return nil, err
	}
	if filter.TaskCreator, err = optionalAddress("creator", q.TaskCreator); err != nil {
		return nil, err
	}
	if filter.Page, err = q.page(); err != nil {
		return nil, err
	}

	disputes, err := s.store.ListDisputes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	return disputes, nil
}

// GetUser returns a user by address.
func (s *Service) GetUser(ctx context.Context, address string) (*domain.User, error) {
	a, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", a, err)
	}
	return u, nil
}

// ListBidsByBidder returns every bid a user has placed, newest first.
func (s *Service) ListBidsByBidder(ctx context.Context, address string) ([]*domain.Bid, error) {
	a, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBidsByBidder(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("bids of %s: %w", a, err)
	}
	return bids, nil
}

// GetAdmin returns an admin by address.
func (s *Service) GetAdmin(ctx context.Context, address string) (*domain.Admin, error) {
	a, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	admin, err := s.store.GetAdmin(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("admin %s: %w", a, err)
	}
	return admin, nil
}

// ListAdmins returns admins, optionally only those with an active stake.
func (s *Service) ListAdmins(ctx context.Context, activeOnly bool, p PageParams) ([]*domain.Admin, error) {
	page, err := p.page()
	if err != nil {
		return nil, err
	}
	admins, err := s.store.ListAdmins(ctx, store.AdminFilter{ActiveOnly: activeOnly, Page: page})
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Stats returns aggregate counts over the projection.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
