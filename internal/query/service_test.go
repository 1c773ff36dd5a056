package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/query"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type QueryServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.MemoryStore
	svc   *query.Service
}

func (s *QueryServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemoryStore()
	s.svc = query.NewService(s.store)
}

func (s *QueryServiceTestSuite) putTask(kind domain.TaskKind, id, creator string, status domain.TaskStatus, minute int) {
	s.Require().NoError(s.store.PutTask(s.ctx, &domain.Task{
		Kind:      kind,
		ID:        id,
		Creator:   creator,
		Worker:    domain.ZeroAddress,
		Reward:    decimal.Zero,
		Status:    status,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}))
}

func (s *QueryServiceTestSuite) TestGetBiddingTaskResolvesBidsInArrivalOrder() {
	s.putTask(domain.TaskKindBidding, "1", alice, domain.TaskStatusOpen, 0)
	for i, bidder := range []string{carol, bob} {
		bid := &domain.Bid{
			ID:        domain.BidID("1", bidder),
			TaskID:    "1",
			Bidder:    bidder,
			Amount:    decimal.NewFromInt(int64(100 + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.store.PutBid(s.ctx, bid))
		s.Require().NoError(s.store.AppendTaskBid(s.ctx, "1", bid.ID))
	}

	view, err := s.svc.GetTask(s.ctx, "bidding", "1")
	s.Require().NoError(err)
	s.Require().Len(view.Bids, 2)
	s.Equal(carol, view.Bids[0].Bidder)
	s.Equal(bob, view.Bids[1].Bidder)
	s.Empty(view.Milestones)
}

func (s *QueryServiceTestSuite) TestGetMilestoneTaskResolvesMilestonesByIndex() {
	s.putTask(domain.TaskKindMilestone, "4", alice, domain.TaskStatusOpen, 0)
	for _, idx := range []uint32{1, 0} {
		m := &domain.Milestone{
			ID:        domain.MilestoneID("4", idx),
			TaskID:    "4",
			Index:     idx,
			Reward:    decimal.NewFromInt(10),
			CreatedAt: base,
		}
		s.Require().NoError(s.store.PutMilestone(s.ctx, m))
		s.Require().NoError(s.store.AppendTaskMilestone(s.ctx, "4", m.ID))
	}

	view, err := s.svc.GetTask(s.ctx, "milestone", "4")
	s.Require().NoError(err)
	s.Require().Len(view.Milestones, 2)
	s.Equal(uint32(0), view.Milestones[0].Index)
	s.Equal(uint32(1), view.Milestones[1].Index)
	s.Empty(view.Bids)
}

func (s *QueryServiceTestSuite) TestGetTaskErrors() {
	_, err := s.svc.GetTask(s.ctx, "auction", "1")
	s.ErrorIs(err, domain.ErrUnknownKind)

	_, err = s.svc.GetTask(s.ctx, "bidding", "99")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *QueryServiceTestSuite) TestListTasksFiltersAndPages() {
	s.putTask(domain.TaskKindBidding, "1", alice, domain.TaskStatusOpen, 1)
	s.putTask(domain.TaskKindBidding, "2", alice, domain.TaskStatusPaid, 2)
	s.putTask(domain.TaskKindFixedPayment, "1", bob, domain.TaskStatusOpen, 3)
	s.putTask(domain.TaskKindMilestone, "1", alice, domain.TaskStatusCancelled, 4)

	tasks, err := s.svc.ListTasks(s.ctx, query.TaskQuery{})
	s.Require().NoError(err)
	s.Require().Len(tasks, 4)
	s.Equal(domain.TaskKindMilestone, tasks[0].Kind, "newest first by default")

	tasks, err = s.svc.ListTasks(s.ctx, query.TaskQuery{Creator: "0x1111111111111111111111111111111111111111"})
	s.Require().NoError(err)
	s.Len(tasks, 3)

	tasks, err = s.svc.ListTasks(s.ctx, query.TaskQuery{Statuses: []string{"Open", " "}})
	s.Require().NoError(err)
	s.Len(tasks, 2)

	tasks, err = s.svc.ListTasks(s.ctx, query.TaskQuery{Kind: "bidding", PageParams: query.PageParams{Direction: "ASC", First: 1, Skip: 1}})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("2", tasks[0].ID)

	tasks, err = s.svc.ListTasks(s.ctx, query.TaskQuery{PageParams: query.PageParams{Skip: -5, First: 2}})
	s.Require().NoError(err)
	s.Len(tasks, 2, "negative skip is treated as zero")
}

func (s *QueryServiceTestSuite) TestListTasksValidation() {
	_, err := s.svc.ListTasks(s.ctx, query.TaskQuery{Kind: "auction"})
	s.ErrorIs(err, domain.ErrUnknownKind)

	_, err = s.svc.ListTasks(s.ctx, query.TaskQuery{Statuses: []string{"Done"}})
	s.ErrorIs(err, domain.ErrInvalidStatus)

	_, err = s.svc.ListTasks(s.ctx, query.TaskQuery{Worker: "bob"})
	s.ErrorIs(err, domain.ErrInvalidAddress)

	_, err = s.svc.ListTasks(s.ctx, query.TaskQuery{PageParams: query.PageParams{Direction: "sideways"}})
	s.ErrorIs(err, domain.ErrInvalidDirection)
}

func (s *QueryServiceTestSuite) TestGetDisputeResolvesVotes() {
	d := &domain.Dispute{
		ID:          "3",
		TaskID:      "1",
		Worker:      bob,
		TaskCreator: alice,
		Status:      domain.DisputeStatusFiled,
		CreatedAt:   base,
	}
	s.Require().NoError(s.store.PutDispute(s.ctx, d))
	vote := &domain.AdminVote{
		ID:          domain.VoteID("3", carol),
		DisputeID:   "3",
		Admin:       carol,
		WorkerShare: decimal.NewFromInt(60),
		CreatedAt:   base,
	}
	s.Require().NoError(s.store.PutVote(s.ctx, vote))
	s.Require().NoError(s.store.AppendDisputeVote(s.ctx, "3", vote.ID))

	view, err := s.svc.GetDispute(s.ctx, "3")
	s.Require().NoError(err)
	s.Require().Len(view.Votes, 1)
	s.True(view.Votes[0].WorkerShare.Equal(decimal.NewFromInt(60)))

	disputes, err := s.svc.ListDisputes(s.ctx, query.DisputeQuery{Statuses: []string{"Filed"}, Worker: bob})
	s.Require().NoError(err)
	s.Len(disputes, 1)

	_, err = s.svc.ListDisputes(s.ctx, query.DisputeQuery{Statuses: []string{"Open"}})
	s.ErrorIs(err, domain.ErrInvalidStatus)

	_, err = s.svc.GetDispute(s.ctx, "4")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *QueryServiceTestSuite) TestUsersAndAdmins() {
	_, err := s.store.EnsureUser(s.ctx, &domain.User{Address: alice, CreatedAt: base})
	s.Require().NoError(err)
	s.Require().NoError(s.store.PutAdmin(s.ctx, &domain.Admin{Address: bob, StakeAmount: decimal.NewFromInt(5), IsActive: true, CreatedAt: base}))
	s.Require().NoError(s.store.PutAdmin(s.ctx, &domain.Admin{Address: carol, StakeAmount: decimal.Zero, CreatedAt: base}))

	u, err := s.svc.GetUser(s.ctx, "0x1111111111111111111111111111111111111111")
	s.Require().NoError(err)
	s.Equal(alice, u.Address)

	_, err = s.svc.GetUser(s.ctx, "nope")
	s.ErrorIs(err, domain.ErrInvalidAddress)

	_, err = s.svc.GetUser(s.ctx, bob)
	s.ErrorIs(err, store.ErrNotFound)

	admins, err := s.svc.ListAdmins(s.ctx, true, query.PageParams{})
	s.Require().NoError(err)
	s.Require().Len(admins, 1)
	s.Equal(bob, admins[0].Address)

	admins, err = s.svc.ListAdmins(s.ctx, false, query.PageParams{})
	s.Require().NoError(err)
	s.Len(admins, 2)

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Users)
	s.Equal(1, stats.ActiveAdmins)
	s.True(stats.TotalAdminStake.Equal(decimal.NewFromInt(5)))
}

func TestQueryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceTestSuite))
}
