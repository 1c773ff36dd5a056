package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies the contract stream an event was emitted by. Events from
// different sources share no entities except Users.
type Source string

const (
	SourceBidding      Source = "bidding"
	SourceFixedPayment Source = "fixed_payment"
	SourceMilestone    Source = "milestone"
	SourceDispute      Source = "dispute"
	SourceUser         Source = "user"
)

// Sources lists every known stream in a stable order.
var Sources = []Source{SourceBidding, SourceFixedPayment, SourceMilestone, SourceDispute, SourceUser}

// IsValid checks if the source is one of the allowed values.
func (s Source) IsValid() bool {
	switch s {
	case SourceBidding, SourceFixedPayment, SourceMilestone, SourceDispute, SourceUser:
		return true
	default:
		return false
	}
}

// TaskKind returns the task kind carried by a task-contract source.
func (s Source) TaskKind() (TaskKind, bool) {
	switch s {
	case SourceBidding:
		return TaskKindBidding, true
	case SourceFixedPayment:
		return TaskKindFixedPayment, true
	case SourceMilestone:
		return TaskKindMilestone, true
	default:
		return "", false
	}
}

// EventName is the contract event type tag.
type EventName string

const (
	EventTaskCreated          EventName = "TaskCreated"
	EventBidSubmitted         EventName = "BidSubmitted"
	EventWorkerAdded          EventName = "WorkerAdded"
	EventProofOfWorkSubmitted EventName = "ProofOfWorkSubmitted"
	EventProofOfWorkApproved  EventName = "ProofOfWorkApproved"
	EventMilestoneAdded       EventName = "MilestoneAdded"
	EventMilestonePaid        EventName = "MilestonePaid"
	EventTaskCancelled        EventName = "TaskCancelled"
	EventTaskPaid             EventName = "TaskPaid"
	EventRewardIncreased      EventName = "RewardIncreased"
	EventDeadlineChanged      EventName = "DeadlineChanged"

	EventDisputeFiled              EventName = "DisputeFiled"
	EventAdminVoted                EventName = "AdminVoted"
	EventDisputeResolved           EventName = "DisputeResolved"
	EventProposalApprovedByWorker  EventName = "ProposalApprovedByWorker"
	EventProposalApprovedByCreator EventName = "ProposalApprovedByCreator"
	EventFundsDistributed          EventName = "FundsDistributed"
	EventProposalRejected          EventName = "ProposalRejected"
	EventAdminStaked               EventName = "AdminStaked"
	EventAdminWithdrawn            EventName = "AdminWithdrawn"

	EventUserProfileUpdated EventName = "UserProfileUpdated"
	EventUserSkillsUpdated  EventName = "UserSkillsUpdated"
)

// EventNames lists every known event name.
var EventNames = []EventName{
	EventTaskCreated, EventBidSubmitted, EventWorkerAdded, EventProofOfWorkSubmitted,
	EventProofOfWorkApproved, EventMilestoneAdded, EventMilestonePaid, EventTaskCancelled,
	EventTaskPaid, EventRewardIncreased, EventDeadlineChanged,
	EventDisputeFiled, EventAdminVoted, EventDisputeResolved, EventProposalApprovedByWorker,
	EventProposalApprovedByCreator, EventFundsDistributed, EventProposalRejected,
	EventAdminStaked, EventAdminWithdrawn,
	EventUserProfileUpdated, EventUserSkillsUpdated,
}

// Position orders events within a stream: block number, then log index.
type Position struct {
	Block    uint64
	LogIndex uint32
}

// Less reports whether p comes strictly before o.
func (p Position) Less(o Position) bool {
	if p.Block != o.Block {
		return p.Block < o.Block
	}
	return p.LogIndex < o.LogIndex
}

// String formats the position as block:logIndex.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Block, p.LogIndex)
}

// Event is one decoded contract log delivered by the upstream feed.
type Event struct {
	Source          Source          `json:"source"`
	ContractAddress string          `json:"contract"`
	Name            EventName       `json:"event"`
	BlockNumber     uint64          `json:"blockNumber"`
	LogIndex        uint32          `json:"logIndex"`
	BlockTimestamp  int64           `json:"blockTimestamp"`
	TxHash          string          `json:"txHash,omitempty"`
	Params          json.RawMessage `json:"params"`
}

// Position returns the event's place in its stream.
func (e Event) Position() Position {
	return Position{Block: e.BlockNumber, LogIndex: e.LogIndex}
}

// Time returns the block timestamp as UTC time.
func (e Event) Time() time.Time {
	return time.Unix(e.BlockTimestamp, 0).UTC()
}

// Checkpoint records the last fully processed position of a stream.
type Checkpoint struct {
	Stream    Source
	Position  Position
	UpdatedAt time.Time
}
