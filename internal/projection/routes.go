package projection

import (
	"encoding/json"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/router"
)

func taskKey(evt domain.Event, id json.Number) string {
	kind, _ := evt.Source.TaskKind()
	return "task:" + string(kind) + ":" + domain.EntityID(id)
}

func disputeKey(id json.Number) string {
	return "dispute:" + domain.EntityID(id)
}

// Register wires every handler into r, once per task contract for the task
// events they share.
func (p *Projector) Register(r *router.Router) {
	for _, src := range []domain.Source{domain.SourceBidding, domain.SourceFixedPayment, domain.SourceMilestone} {
		router.Handle(r, src, domain.EventTaskCreated,
			func(evt domain.Event, params *domain.TaskCreatedParams) string { return taskKey(evt, params.TaskID) },
			p.TaskCreated)
		router.Handle(r, src, domain.EventWorkerAdded,
			func(evt domain.Event, params *domain.WorkerAddedParams) string { return taskKey(evt, params.TaskID) },
			p.WorkerAdded)
		router.Handle(r, src, domain.EventProofOfWorkSubmitted,
			func(evt domain.Event, params *domain.ProofSubmittedParams) string { return taskKey(evt, params.TaskID) },
			p.ProofOfWorkSubmitted)
		router.Handle(r, src, domain.EventProofOfWorkApproved,
			func(evt domain.Event, params *domain.ProofApprovedParams) string { return taskKey(evt, params.TaskID) },
			p.ProofOfWorkApproved)
		router.Handle(r, src, domain.EventTaskCancelled,
			func(evt domain.Event, params *domain.TaskRefParams) string { return taskKey(evt, params.TaskID) },
			p.TaskCancelled)
		router.Handle(r, src, domain.EventTaskPaid,
			func(evt domain.Event, params *domain.TaskAmountParams) string { return taskKey(evt, params.TaskID) },
			p.TaskPaid)
		router.Handle(r, src, domain.EventRewardIncreased,
			func(evt domain.Event, params *domain.TaskAmountParams) string { return taskKey(evt, params.TaskID) },
			p.RewardIncreased)
		router.Handle(r, src, domain.EventDeadlineChanged,
			func(evt domain.Event, params *domain.DeadlineChangedParams) string { return taskKey(evt, params.TaskID) },
			p.DeadlineChanged)
	}

	router.Handle(r, domain.SourceBidding, domain.EventBidSubmitted,
		func(evt domain.Event, params *domain.BidSubmittedParams) string { return taskKey(evt, params.TaskID) },
		p.BidSubmitted)

	router.Handle(r, domain.SourceMilestone, domain.EventMilestoneAdded,
		func(evt domain.Event, params *domain.MilestoneAddedParams) string { return taskKey(evt, params.TaskID) },
		p.MilestoneAdded)
	router.Handle(r, domain.SourceMilestone, domain.EventMilestonePaid,
		func(evt domain.Event, params *domain.MilestonePaidParams) string { return taskKey(evt, params.TaskID) },
		p.MilestonePaid)

	router.Handle(r, domain.SourceDispute, domain.EventDisputeFiled,
		func(_ domain.Event, params *domain.DisputeFiledParams) string { return disputeKey(params.DisputeID) },
		p.DisputeFiled)
	router.Handle(r, domain.SourceDispute, domain.EventAdminVoted,
		func(_ domain.Event, params *domain.AdminVotedParams) string { return disputeKey(params.DisputeID) },
		p.AdminVoted)
	router.Handle(r, domain.SourceDispute, domain.EventDisputeResolved,
		func(_ domain.Event, params *domain.DisputeResolvedParams) string { return disputeKey(params.DisputeID) },
		p.DisputeResolved)
	router.Handle(r, domain.SourceDispute, domain.EventProposalApprovedByWorker,
		func(_ domain.Event, params *domain.DisputeRefParams) string { return disputeKey(params.DisputeID) },
		p.ProposalApprovedByWorker)
	router.Handle(r, domain.SourceDispute, domain.EventProposalApprovedByCreator,
		func(_ domain.Event, params *domain.DisputeRefParams) string { return disputeKey(params.DisputeID) },
		p.ProposalApprovedByCreator)
	router.Handle(r, domain.SourceDispute, domain.EventFundsDistributed,
		func(_ domain.Event, params *domain.DisputeRefParams) string { return disputeKey(params.DisputeID) },
		p.FundsDistributed)
	router.Handle(r, domain.SourceDispute, domain.EventProposalRejected,
		func(_ domain.Event, params *domain.DisputeRefParams) string { return disputeKey(params.DisputeID) },
		p.ProposalRejected)
	router.Handle(r, domain.SourceDispute, domain.EventAdminStaked,
		func(_ domain.Event, params *domain.AdminStakeParams) string { return "admin:" + params.Admin },
		p.AdminStaked)
	router.Handle(r, domain.SourceDispute, domain.EventAdminWithdrawn,
		func(_ domain.Event, params *domain.AdminStakeParams) string { return "admin:" + params.Admin },
		p.AdminWithdrawn)

	router.Handle(r, domain.SourceUser, domain.EventUserProfileUpdated,
		func(_ domain.Event, params *domain.UserProfileUpdatedParams) string { return "user:" + params.User },
		p.UserProfileUpdated)
	router.Handle(r, domain.SourceUser, domain.EventUserSkillsUpdated,
		func(_ domain.Event, params *domain.UserSkillsUpdatedParams) string { return "user:" + params.User },
		p.UserSkillsUpdated)
}
