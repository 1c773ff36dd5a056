package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaskKind tags which escrow contract a task belongs to. Each contract numbers
// its tasks independently, so a task is identified by (Kind, ID).
type TaskKind string

const (
	TaskKindBidding      TaskKind = "bidding"
	TaskKindFixedPayment TaskKind = "fixed_payment"
	TaskKindMilestone    TaskKind = "milestone"
)

// IsValid checks if the kind is one of the allowed values.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindBidding, TaskKindFixedPayment, TaskKindMilestone:
		return true
	default:
		return false
	}
}

// ParseTaskKind converts a string to a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	k := TaskKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// TaskStatus represents the status of a task in the contract state machine.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "Open"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusPaid       TaskStatus = "Paid"
	TaskStatusCancelled  TaskStatus = "Cancelled"
)

// IsTerminal returns true if the status is terminal (no transitions allowed).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusPaid || s == TaskStatusCancelled
}

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusPaid, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the contract state machine allows moving
// from s to next: Open -> InProgress -> Completed -> Paid, and Cancelled from
// Open or InProgress. InProgress -> Paid is allowed for contracts that pay on
// approval without a separate completion event.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusOpen:
		return next == TaskStatusInProgress || next == TaskStatusCancelled
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusPaid || next == TaskStatusCancelled
	case TaskStatusCompleted:
		return next == TaskStatusPaid
	default:
		return false
	}
}

// Task is the common core shared by bidding, fixed-payment and milestone tasks.
// Kind-specific children are referenced by ID and stored independently.
type Task struct {
	Kind        TaskKind
	ID          string
	Title       string
	Description string
	Creator     string
	Worker      string // ZeroAddress until a worker is added
	Reward      decimal.Decimal
	Deadline    int64 // unix seconds
	Status      TaskStatus
	ProofOfWork string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// BidIDs is only populated for bidding tasks, in arrival order.
	BidIDs []string
	// MilestoneIDs is only populated for milestone tasks, in index order.
	MilestoneIDs []string
}

// HasWorker reports whether a worker has been assigned.
func (t *Task) HasWorker() bool {
	return t.Worker != "" && !IsZeroAddress(t.Worker)
}

// Bid is a worker's proposal on a bidding task. One bid per bidder per task;
// resubmission overwrites.
type Bid struct {
	ID            string
	TaskID        string
	Bidder        string
	Amount        decimal.Decimal
	EstimatedTime int64
	Description   string
	CreatedAt     time.Time
}

// BidID derives the composite identity of a bid.
func BidID(taskID, bidder string) string {
	return taskID + "-" + bidder
}
