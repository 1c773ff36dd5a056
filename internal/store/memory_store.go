package store

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
)

const (
	defaultFirst = 100
	maxFirst     = 1000
)

type taskKey struct {
	kind domain.TaskKind
	id   string
}

type eventKey struct {
	stream domain.Source
	pos    domain.Position
}

// MemoryStore holds projected entities in memory. The single RWMutex makes
// each mutation atomic; values are copied on the way in and out so readers
// never observe a half-written entity.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	tasks       map[taskKey]domain.Task
	bids        map[string]domain.Bid
	milestones  map[string]domain.Milestone
	disputes    map[string]domain.Dispute
	votes       map[string]domain.AdminVote
	admins      map[string]domain.Admin
	events      map[eventKey]domain.Event
	checkpoints map[domain.Source]domain.Checkpoint
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		tasks:       make(map[taskKey]domain.Task),
		bids:        make(map[string]domain.Bid),
		milestones:  make(map[string]domain.Milestone),
		disputes:    make(map[string]domain.Dispute),
		votes:       make(map[string]domain.AdminVote),
		admins:      make(map[string]domain.Admin),
		events:      make(map[eventKey]domain.Event),
		checkpoints: make(map[domain.Source]domain.Checkpoint),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

func cloneUser(u domain.User) *domain.User {
	if u.Profile != nil {
		p := *u.Profile
		u.Profile = &p
	}
	if u.Skills != nil {
		sk := *u.Skills
		sk.Skills = slices.Clone(sk.Skills)
		u.Skills = &sk
	}
	return &u
}

func cloneTask(t domain.Task) *domain.Task {
	t.BidIDs = slices.Clone(t.BidIDs)
	t.MilestoneIDs = slices.Clone(t.MilestoneIDs)
	return &t
}

func cloneDispute(d domain.Dispute) *domain.Dispute {
	d.VoteIDs = slices.Clone(d.VoteIDs)
	return &d
}

// GetUser returns the user with the given address.
func (s *MemoryStore) GetUser(_ context.Context, address string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[address]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

// PutUser upserts a user.
func (s *MemoryStore) PutUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Address] = *cloneUser(*user)
	return nil
}

// EnsureUser inserts user unless one already exists, and returns the stored user.
func (s *MemoryStore) EnsureUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.Address]; ok {
		return cloneUser(existing), nil
	}
	s.users[user.Address] = *cloneUser(*user)
	return cloneUser(*user), nil
}

// GetTask returns a task by kind and ID.
func (s *MemoryStore) GetTask(_ context.Context, kind domain.TaskKind, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskKey{kind, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTask(t), nil
}

// PutTask upserts a task. Child ID lists are owned by the Append* methods and
// are preserved from the stored copy.
func (s *MemoryStore) PutTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := taskKey{task.Kind, task.ID}
	t := *cloneTask(*task)
	if existing, ok := s.tasks[k]; ok {
		t.BidIDs = existing.BidIDs
		t.MilestoneIDs = existing.MilestoneIDs
	}
	s.tasks[k] = t
	return nil
}

// ListTasks returns tasks matching filter ordered by created_at.
func (s *MemoryStore) ListTasks(_ context.Context, filter TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if filter.Creator != "" && t.Creator != filter.Creator {
			continue
		}
		if filter.Worker != "" && t.Worker != filter.Worker {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sortByCreated(out, filter.Direction,
		func(t *domain.Task) time.Time { return t.CreatedAt },
		func(a, b *domain.Task) int {
			if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
				return c
			}
			return CompareIDs(a.ID, b.ID)
		})
	return paginate(out, filter.Page), nil
}

// GetBid returns a bid by composite ID.
func (s *MemoryStore) GetBid(_ context.Context, id string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// PutBid upserts a bid.
func (s *MemoryStore) PutBid(_ context.Context, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[bid.ID] = *bid
	return nil
}

// ListBids returns the bids with the given IDs, in the order of ids.
func (s *MemoryStore) ListBids(_ context.Context, ids []string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Bid, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.bids[id]; ok {
			out = append(out, &b)
		}
	}
	return out, nil
}

// ListBidsByBidder returns all bids placed by bidder, newest first.
func (s *MemoryStore) ListBidsByBidder(_ context.Context, bidder string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Bid
	for _, b := range s.bids {
		if b.Bidder == bidder {
			out = append(out, &b)
		}
	}
	sortByCreated(out, Desc,
		func(b *domain.Bid) time.Time { return b.CreatedAt },
		func(a, b *domain.Bid) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// AppendTaskBid appends bidID to the bidding task's bid list if absent.
func (s *MemoryStore) AppendTaskBid(_ context.Context, taskID, bidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := taskKey{domain.TaskKindBidding, taskID}
	t, ok := s.tasks[k]
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(t.BidIDs, bidID) {
		t.BidIDs = append(slices.Clone(t.BidIDs), bidID)
		s.tasks[k] = t
	}
	return nil
}

// GetMilestone returns a milestone by composite ID.
func (s *MemoryStore) GetMilestone(_ context.Context, id string) (*domain.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// PutMilestone upserts a milestone.
func (s *MemoryStore) PutMilestone(_ context.Context, m *domain.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milestones[m.ID] = *m
	return nil
}

// ListMilestones returns a task's milestones ordered by index.
func (s *MemoryStore) ListMilestones(_ context.Context, taskID string) ([]*domain.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Milestone
	for _, m := range s.milestones {
		if m.TaskID == taskID {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// AppendTaskMilestone appends milestoneID to the milestone task's list if absent.
func (s *MemoryStore) AppendTaskMilestone(_ context.Context, taskID, milestoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := taskKey{domain.TaskKindMilestone, taskID}
	t, ok := s.tasks[k]
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(t.MilestoneIDs, milestoneID) {
		t.MilestoneIDs = append(slices.Clone(t.MilestoneIDs), milestoneID)
		s.tasks[k] = t
	}
	return nil
}

// GetDispute returns a dispute by ID.
func (s *MemoryStore) GetDispute(_ context.Context, id string) (*domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDispute(d), nil
}

// PutDispute upserts a dispute. The vote list is owned by AppendDisputeVote
// and ClearDisputeVotes and is preserved from the stored copy.
func (s *MemoryStore) PutDispute(_ context.Context, d *domain.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *cloneDispute(*d)
	if existing, ok := s.disputes[d.ID]; ok {
		next.VoteIDs = existing.VoteIDs
	}
	s.disputes[d.ID] = next
	return nil
}

// ListDisputes returns disputes matching filter ordered by created_at.
func (s *MemoryStore) ListDisputes(_ context.Context, filter DisputeFilter) ([]*domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Dispute
	for _, d := range s.disputes {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, d.Status) {
			continue
		}
		if filter.Worker != "" && d.Worker != filter.Worker {
			continue
		}
		if filter.TaskCreator != "" && d.TaskCreator != filter.TaskCreator {
			continue
		}
		out = append(out, cloneDispute(d))
	}
	sortByCreated(out, filter.Direction,
		func(d *domain.Dispute) time.Time { return d.CreatedAt },
		func(a, b *domain.Dispute) int { return CompareIDs(a.ID, b.ID) })
	return paginate(out, filter.Page), nil
}

// AppendDisputeVote appends voteID to the dispute's vote list if absent.
func (s *MemoryStore) AppendDisputeVote(_ context.Context, disputeID, voteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disputes[disputeID]
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(d.VoteIDs, voteID) {
		d.VoteIDs = append(slices.Clone(d.VoteIDs), voteID)
		s.disputes[disputeID] = d
	}
	return nil
}

// ClearDisputeVotes empties the dispute's vote list.
func (s *MemoryStore) ClearDisputeVotes(_ context.Context, disputeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disputes[disputeID]
	if !ok {
		return ErrNotFound
	}
	d.VoteIDs = nil
	s.disputes[disputeID] = d
	return nil
}

// GetVote returns a vote by composite ID.
func (s *MemoryStore) GetVote(_ context.Context, id string) (*domain.AdminVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

// PutVote upserts a vote.
func (s *MemoryStore) PutVote(_ context.Context, v *domain.AdminVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[v.ID] = *v
	return nil
}

// ListVotes returns the votes with the given IDs, in the order of ids.
func (s *MemoryStore) ListVotes(_ context.Context, ids []string) ([]*domain.AdminVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.AdminVote, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.votes[id]; ok {
			out = append(out, &v)
		}
	}
	return out, nil
}

// GetAdmin returns an admin by address.
func (s *MemoryStore) GetAdmin(_ context.Context, address string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// PutAdmin upserts an admin.
func (s *MemoryStore) PutAdmin(_ context.Context, a *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.Address] = *a
	return nil
}

// ListAdmins returns admins ordered by created_at.
func (s *MemoryStore) ListAdmins(_ context.Context, filter AdminFilter) ([]*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Admin
	for _, a := range s.admins {
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, &a)
	}
	sortByCreated(out, filter.Direction,
		func(a *domain.Admin) time.Time { return a.CreatedAt },
		func(a, b *domain.Admin) int { return strings.Compare(a.Address, b.Address) })
	return paginate(out, filter.Page), nil
}

// RecordEvent stores evt unless its position was already recorded for the stream.
func (s *MemoryStore) RecordEvent(_ context.Context, evt domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := eventKey{evt.Source, evt.Position()}
	if _, ok := s.events[k]; !ok {
		s.events[k] = evt
	}
	return nil
}

// ListEvents returns up to limit events of stream after pos, in position order.
func (s *MemoryStore) ListEvents(_ context.Context, stream domain.Source, after domain.Position, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for k, evt := range s.events {
		if k.stream == stream && after.Less(k.pos) {
			out = append(out, evt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position().Less(out[j].Position()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetCheckpoint returns the stream's checkpoint.
func (s *MemoryStore) GetCheckpoint(_ context.Context, stream domain.Source) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[stream]
	if !ok {
		return nil, ErrNotFound
	}
	return &cp, nil
}

// PutCheckpoint upserts the stream's checkpoint.
func (s *MemoryStore) PutCheckpoint(_ context.Context, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.Stream] = cp
	return nil
}

// Stats counts the entities currently held.
func (s *MemoryStore) Stats(context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := NewStats()
	st.Users = len(s.users)
	for _, t := range s.tasks {
		st.AddTask(t.Kind, t.Status, 1)
	}
	for _, d := range s.disputes {
		st.Disputes[d.Status]++
	}
	for _, a := range s.admins {
		if a.IsActive {
			st.ActiveAdmins++
			st.TotalAdminStake = st.TotalAdminStake.Add(a.StakeAmount)
		}
	}
	return st, nil
}

// sortByCreated orders items by created time, breaking ties with tie so
// that pagination is stable.
func sortByCreated[T any](items []T, dir Direction, created func(T) time.Time, tie func(a, b T) int) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		c := ci.Compare(cj)
		if c == 0 {
			c = tie(items[i], items[j])
		}
		if dir == Asc {
			return c < 0
		}
		return c > 0
	})
}

// CompareIDs orders canonical decimal ids numerically ("9" before "10") and
// falls back to plain string order for anything else.
func CompareIDs(a, b string) int {
	if isDigits(a) && isDigits(b) && len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Limit returns the effective page size for first.
func (p Page) Limit() int {
	switch {
	case p.First <= 0:
		return defaultFirst
	case p.First > maxFirst:
		return maxFirst
	default:
		return p.First
	}
}

func paginate[T any](items []T, p Page) []T {
	if p.Skip >= len(items) {
		return []T{}
	}
	items = items[max(p.Skip, 0):]
	if n := p.Limit(); len(items) > n {
		items = items[:n]
	}
	return items
}
