package projection_test

import (
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// snapshot is every entity reachable through the store's read API.
type snapshot struct {
	Tasks      []*domain.Task
	Bids       []*domain.Bid
	Milestones []*domain.Milestone
	Disputes   []*domain.Dispute
	Votes      []*domain.AdminVote
	Admins     []*domain.Admin
	Users      []*domain.User
}

func (s *ProjectionTestSuite) snapshot() snapshot {
	var snap snapshot
	var err error

	snap.Tasks, err = s.store.ListTasks(s.ctx, store.TaskFilter{Page: store.Page{First: 1000, Direction: store.Asc}})
	s.Require().NoError(err)
	for _, t := range snap.Tasks {
		bids, err := s.store.ListBids(s.ctx, t.BidIDs)
		s.Require().NoError(err)
		snap.Bids = append(snap.Bids, bids...)
		if t.Kind == domain.TaskKindMilestone {
			ms, err := s.store.ListMilestones(s.ctx, t.ID)
			s.Require().NoError(err)
			snap.Milestones = append(snap.Milestones, ms...)
		}
	}

	snap.Disputes, err = s.store.ListDisputes(s.ctx, store.DisputeFilter{Page: store.Page{First: 1000, Direction: store.Asc}})
	s.Require().NoError(err)
	for _, d := range snap.Disputes {
		votes, err := s.store.ListVotes(s.ctx, d.VoteIDs)
		s.Require().NoError(err)
		snap.Votes = append(snap.Votes, votes...)
	}

	snap.Admins, err = s.store.ListAdmins(s.ctx, store.AdminFilter{Page: store.Page{First: 1000, Direction: store.Asc}})
	s.Require().NoError(err)

	for _, addr := range []string{domain.ZeroAddress, creator, bidderA, bidderB} {
		u, err := s.store.GetUser(s.ctx, addr)
		if err == nil {
			snap.Users = append(snap.Users, u)
		}
	}
	return snap
}

type step struct {
	src    domain.Source
	name   domain.EventName
	params params
}

var (
	fileDispute = step{domain.SourceDispute, domain.EventDisputeFiled, params{
		"disputeId": 1, "taskId": 1, "taskContract": taskSC, "worker": bidderA, "taskCreator": creator, "rewardAmount": 100,
	}}
	voteDispute    = step{domain.SourceDispute, domain.EventAdminVoted, params{"disputeId": 1, "admin": admin1, "workerShare": 40}}
	resolveDispute = step{domain.SourceDispute, domain.EventDisputeResolved, params{"disputeId": 1, "workerShare": 40}}
	createBidding  = step{domain.SourceBidding, domain.EventTaskCreated, params{"taskId": 1, "creator": creator, "title": "t"}}
	bid            = step{domain.SourceBidding, domain.EventBidSubmitted, params{"taskId": 1, "bidder": bidderA, "amount": 70}}
	assignBidding  = step{domain.SourceBidding, domain.EventWorkerAdded, params{"taskId": 1, "worker": bidderA, "amount": 70}}
	submitBidding  = step{domain.SourceBidding, domain.EventProofOfWorkSubmitted, params{"taskId": 1, "proof": "p"}}
	approveBidding = step{domain.SourceBidding, domain.EventProofOfWorkApproved, params{"taskId": 1}}
	createMs       = step{domain.SourceMilestone, domain.EventTaskCreated, params{"taskId": 1, "creator": creator}}
	addMs          = step{domain.SourceMilestone, domain.EventMilestoneAdded, params{"taskId": 1, "milestoneIndex": 0, "reward": 10}}
	assignMs       = step{domain.SourceMilestone, domain.EventWorkerAdded, params{"taskId": 1, "worker": bidderB}}
	submitMs       = step{domain.SourceMilestone, domain.EventProofOfWorkSubmitted, params{"taskId": 1, "milestoneIndex": 0, "proof": "m"}}
	approveMs      = step{domain.SourceMilestone, domain.EventProofOfWorkApproved, params{"taskId": 1, "milestoneIndex": 0}}
)

func (s *ProjectionTestSuite) TestEveryHandlerIsIdempotent() {
	cases := []struct {
		name   string
		before []step
		event  step
	}{
		{"TaskCreated", nil, createBidding},
		{"BidSubmitted", []step{createBidding}, bid},
		{"WorkerAdded", []step{createBidding, bid}, assignBidding},
		{"ProofOfWorkSubmitted", []step{createBidding, assignBidding}, submitBidding},
		{"ProofOfWorkApproved", []step{createBidding, assignBidding, submitBidding}, approveBidding},
		{"TaskPaid", []step{createBidding, assignBidding, approveBidding},
			step{domain.SourceBidding, domain.EventTaskPaid, params{"taskId": 1, "amount": 70}}},
		{"TaskCancelled", []step{createBidding},
			step{domain.SourceBidding, domain.EventTaskCancelled, params{"taskId": 1}}},
		{"RewardIncreased", []step{createBidding},
			step{domain.SourceBidding, domain.EventRewardIncreased, params{"taskId": 1, "amount": 99}}},
		{"DeadlineChanged", []step{createBidding},
			step{domain.SourceBidding, domain.EventDeadlineChanged, params{"taskId": 1, "newDeadline": 42}}},
		{"MilestoneAdded", []step{createMs}, addMs},
		{"MilestoneProofSubmitted", []step{createMs, addMs, assignMs}, submitMs},
		{"MilestoneProofApproved", []step{createMs, addMs, assignMs, submitMs}, approveMs},
		{"MilestonePaid", []step{createMs, addMs, assignMs, submitMs, approveMs},
			step{domain.SourceMilestone, domain.EventMilestonePaid, params{"taskId": 1, "milestoneIndex": 0}}},
		{"DisputeFiled", nil, fileDispute},
		{"AdminVoted", []step{fileDispute}, voteDispute},
		{"DisputeResolved", []step{fileDispute, voteDispute}, resolveDispute},
		{"ProposalApprovedByWorker", []step{fileDispute, resolveDispute},
			step{domain.SourceDispute, domain.EventProposalApprovedByWorker, params{"disputeId": 1}}},
		{"ProposalApprovedByCreator", []step{fileDispute, resolveDispute},
			step{domain.SourceDispute, domain.EventProposalApprovedByCreator, params{"disputeId": 1}}},
		{"FundsDistributed", []step{fileDispute, resolveDispute},
			step{domain.SourceDispute, domain.EventFundsDistributed, params{"disputeId": 1}}},
		{"ProposalRejected", []step{fileDispute, voteDispute, resolveDispute},
			step{domain.SourceDispute, domain.EventProposalRejected, params{"disputeId": 1}}},
		{"AdminStaked", nil,
			step{domain.SourceDispute, domain.EventAdminStaked, params{"admin": admin1, "amount": 5}}},
		{"AdminWithdrawn", []step{{domain.SourceDispute, domain.EventAdminStaked, params{"admin": admin1, "amount": 5}}},
			step{domain.SourceDispute, domain.EventAdminWithdrawn, params{"admin": admin1, "amount": 5}}},
		{"UserProfileUpdated", nil,
			step{domain.SourceUser, domain.EventUserProfileUpdated, params{"user": bidderA, "name": "a"}}},
		{"UserSkillsUpdated", nil,
			step{domain.SourceUser, domain.EventUserSkillsUpdated, params{"user": bidderA, "skills": []string{"go"}}}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			for _, st := range tc.before {
				s.apply(st.src, st.name, st.params)
			}

			evt := s.event(tc.event.src, tc.event.name, tc.event.params)
			s.Require().NoError(s.router.Dispatch(s.ctx, evt))
			once := s.snapshot()

			s.Require().NoError(s.router.Dispatch(s.ctx, evt))
			s.Equal(once, s.snapshot())
		})
	}
}
