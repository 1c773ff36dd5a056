package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// MilestoneStage is the position of a milestone in its lifecycle.
// Stages only ever increase.
type MilestoneStage int

const (
	MilestoneUnsubmitted MilestoneStage = iota
	MilestoneSubmitted
	MilestoneApproved
	MilestonePaid
)

// String returns the stage name.
func (s MilestoneStage) String() string {
	switch s {
	case MilestoneSubmitted:
		return "submitted"
	case MilestoneApproved:
		return "approved"
	case MilestonePaid:
		return "paid"
	default:
		return "unsubmitted"
	}
}

// WorkProof is the proof embedded in a milestone.
type WorkProof struct {
	Proof       string
	Submitted   bool
	Approved    bool
	SubmittedAt *time.Time
}

// Milestone is a partial-completion unit of a milestone task.
type Milestone struct {
	ID          string
	TaskID      string
	Index       uint32
	Description string
	Reward      decimal.Decimal
	Paid        bool
	CompletedAt *time.Time
	WorkProof   WorkProof
	CreatedAt   time.Time
}

// Stage derives the lifecycle stage from the milestone flags.
func (m *Milestone) Stage() MilestoneStage {
	switch {
	case m.Paid:
		return MilestonePaid
	case m.WorkProof.Approved:
		return MilestoneApproved
	case m.WorkProof.Submitted:
		return MilestoneSubmitted
	default:
		return MilestoneUnsubmitted
	}
}

// MilestoneID derives the composite identity of a milestone.
func MilestoneID(taskID string, index uint32) string {
	return taskID + "-" + strconv.FormatUint(uint64(index), 10)
}
