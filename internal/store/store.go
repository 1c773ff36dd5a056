// Package store defines the entity store the projection writes to and the
// query layer reads from, plus an in-memory implementation.
//
// Every mutation is atomic per entity. There are no cross-entity
// transactions: a handler performs independent single-entity upserts and
// relies on idempotent replay to converge after a partial application.
package store

import (
	"context"
	"errors"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Get* methods when the entity does not exist.
var ErrNotFound = errors.New("entity not found")

// Direction orders listings by created_at.
type Direction string

const (
	Desc Direction = "desc"
	Asc  Direction = "asc"
)

// Page holds first/skip pagination.
type Page struct {
	First     int
	Skip      int
	Direction Direction
}

// TaskFilter selects tasks for listing. Zero-valued fields do not filter.
type TaskFilter struct {
	Kind     domain.TaskKind
	Statuses []domain.TaskStatus
	Creator  string
	Worker   string
	Page
}

// DisputeFilter selects disputes for listing.
type DisputeFilter struct {
	Statuses    []domain.DisputeStatus
	Worker      string
	TaskCreator string
	Page
}

// AdminFilter selects admins for listing.
type AdminFilter struct {
	ActiveOnly bool
	Page
}

// Users stores wallet identities.
type Users interface {
	GetUser(ctx context.Context, address string) (*domain.User, error)
	PutUser(ctx context.Context, user *domain.User) error
	// EnsureUser inserts user if no user with that address exists and returns
	// the stored user. It never overwrites an existing user.
	EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error)
}

// Tasks stores tasks and their kind-specific children.
type Tasks interface {
	GetTask(ctx context.Context, kind domain.TaskKind, id string) (*domain.Task, error)
	PutTask(ctx context.Context, task *domain.Task) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	GetBid(ctx context.Context, id string) (*domain.Bid, error)
	PutBid(ctx context.Context, bid *domain.Bid) error
	ListBids(ctx context.Context, ids []string) ([]*domain.Bid, error)
	ListBidsByBidder(ctx context.Context, bidder string) ([]*domain.Bid, error)
	// AppendTaskBid adds bidID to the task's bid list if it is not already there.
	AppendTaskBid(ctx context.Context, taskID, bidID string) error

	GetMilestone(ctx context.Context, id string) (*domain.Milestone, error)
	PutMilestone(ctx context.Context, m *domain.Milestone) error
	ListMilestones(ctx context.Context, taskID string) ([]*domain.Milestone, error)
	// AppendTaskMilestone adds milestoneID to the task's milestone list if absent.
	AppendTaskMilestone(ctx context.Context, taskID, milestoneID string) error
}

// Disputes stores disputes, admins and votes.
type Disputes interface {
	GetDispute(ctx context.Context, id string) (*domain.Dispute, error)
	PutDispute(ctx context.Context, d *domain.Dispute) error
	ListDisputes(ctx context.Context, filter DisputeFilter) ([]*domain.Dispute, error)
	// AppendDisputeVote adds voteID to the dispute's vote list if absent.
	AppendDisputeVote(ctx context.Context, disputeID, voteID string) error
	ClearDisputeVotes(ctx context.Context, disputeID string) error

	GetVote(ctx context.Context, id string) (*domain.AdminVote, error)
	PutVote(ctx context.Context, v *domain.AdminVote) error
	ListVotes(ctx context.Context, ids []string) ([]*domain.AdminVote, error)

	GetAdmin(ctx context.Context, address string) (*domain.Admin, error)
	PutAdmin(ctx context.Context, a *domain.Admin) error
	ListAdmins(ctx context.Context, filter AdminFilter) ([]*domain.Admin, error)
}

// Log stores raw events and per-stream checkpoints.
type Log interface {
	// RecordEvent stores evt once per (stream, block, logIndex); re-recording is a no-op.
	RecordEvent(ctx context.Context, evt domain.Event) error
	// ListEvents returns up to limit events of a stream strictly after pos, in order.
	ListEvents(ctx context.Context, stream domain.Source, after domain.Position, limit int) ([]domain.Event, error)
	GetCheckpoint(ctx context.Context, stream domain.Source) (*domain.Checkpoint, error)
	PutCheckpoint(ctx context.Context, cp domain.Checkpoint) error
}

// Stats holds aggregate counts over the projected entities.
type Stats struct {
	Users           int
	Tasks           map[domain.TaskKind]map[domain.TaskStatus]int
	Disputes        map[domain.DisputeStatus]int
	ActiveAdmins    int
	TotalAdminStake decimal.Decimal
}

// StatsReader computes aggregate counts.
type StatsReader interface {
	Stats(ctx context.Context) (*Stats, error)
}

// Store is the complete entity store.
type Store interface {
	Users
	Tasks
	Disputes
	Log
	StatsReader
	Ping(ctx context.Context) error
}

// NewStats returns a Stats with every map allocated.
func NewStats() *Stats {
	return &Stats{
		Tasks:           make(map[domain.TaskKind]map[domain.TaskStatus]int),
		Disputes:        make(map[domain.DisputeStatus]int),
		TotalAdminStake: decimal.Zero,
	}
}

// AddTask counts one task of kind in status.
func (s *Stats) AddTask(kind domain.TaskKind, status domain.TaskStatus, n int) {
	byStatus, ok := s.Tasks[kind]
	if !ok {
		byStatus = make(map[domain.TaskStatus]int)
		s.Tasks[kind] = byStatus
	}
	byStatus[status] += n
}
