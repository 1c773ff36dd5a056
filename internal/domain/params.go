package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalizer is implemented by event params that carry addresses or other
// fields the decoding layer must validate before the params reach a handler.
type Normalizer interface {
	Normalize() error
}

// normalizeAddr validates and lowercases *addr in place.
func normalizeAddr(field string, addr *string) error {
	a, err := NormalizeAddress(*addr)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*addr = a
	return nil
}

// requireID validates an on-chain uint256 identifier.
func requireID(field string, id json.Number) error {
	s := strings.TrimSpace(id.String())
	if s == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidEvent, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s %q is not numeric", ErrInvalidEvent, field, s)
	}
	if !d.IsInteger() || d.IsNegative() {
		return fmt.Errorf("%w: %s %q is not a uint256", ErrInvalidEvent, field, s)
	}
	return nil
}

// requireAmount validates a uint256 amount in base units.
func requireAmount(field string, d decimal.Decimal) error {
	if !d.IsInteger() || d.IsNegative() {
		return fmt.Errorf("%w: %s %s is not a uint256", ErrInvalidEvent, field, d.String())
	}
	return nil
}

// EntityID renders an on-chain identifier in canonical decimal form, so that
// "007" and "7" name the same entity.
func EntityID(id json.Number) string {
	s := strings.TrimSpace(id.String())
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

// TaskCreatedParams is emitted when a task is created on any task contract.
type TaskCreatedParams struct {
	TaskID      json.Number `json:"taskId"`
	Creator     string      `json:"creator"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Deadline    int64       `json:"deadline"`
}

func (p *TaskCreatedParams) Normalize() error {
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	return normalizeAddr("creator", &p.Creator)
}

// BidSubmittedParams is emitted by the bidding contract.
type BidSubmittedParams struct {
	TaskID        json.Number     `json:"taskId"`
	Bidder        string          `json:"bidder"`
	Amount        decimal.Decimal `json:"amount"`
	EstimatedTime int64           `json:"estimatedTime"`
	Description   string          `json:"description"`
}

func (p *BidSubmittedParams) Normalize() error {
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	if err := requireAmount("amount", p.Amount); err != nil {
		return err
	}
	return normalizeAddr("bidder", &p.Bidder)
}

// WorkerAddedParams assigns a worker. For bidding tasks Amount is the winning bid.
type WorkerAddedParams struct {
	TaskID json.Number     `json:"taskId"`
	Worker string          `json:"worker"`
	Amount decimal.Decimal `json:"amount"`
}

func (p *WorkerAddedParams) Normalize() error {
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	if err := requireAmount("amount", p.Amount); err != nil {
		return err
	}
	return normalizeAddr("worker", &p.Worker)
}

// ProofSubmittedParams carries a proof of work. MilestoneIndex is set only
// for milestone tasks.
type ProofSubmittedParams struct {
	TaskID         json.Number `json:"taskId"`
	MilestoneIndex *uint32     `json:"milestoneIndex,omitempty"`
	Proof          string      `json:"proof"`
}

func (p *ProofSubmittedParams) Normalize() error {
	return requireID("taskId", p.TaskID)
}

// ProofApprovedParams approves a task's (or one milestone's) proof of work.
type ProofApprovedParams struct {
	TaskID         json.Number `json:"taskId"`
	MilestoneIndex *uint32     `json:"milestoneIndex,omitempty"`
}

func (p *ProofApprovedParams) Normalize() error {
	return requireID("taskId", p.TaskID)
}

// MilestoneAddedParams adds a milestone to a milestone task.
type MilestoneAddedParams struct {
	TaskID         json.Number     `json:"taskId"`
	MilestoneIndex uint32          `json:"milestoneIndex"`
	Description    string          `json:"description"`
	Reward         decimal.Decimal `json:"reward"`
}

func (p *MilestoneAddedParams) Normalize() error {
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	return requireAmount("reward", p.Reward)
}

// MilestonePaidParams marks one milestone as paid.
type MilestonePaidParams struct {
	TaskID         json.Number `json:"taskId"`
	MilestoneIndex uint32      `json:"milestoneIndex"`
}

func (p *MilestonePaidParams) Normalize() error {
	return requireID("taskId", p.TaskID)
}

// TaskRefParams only references a task (TaskCancelled).
type TaskRefParams struct {
	TaskID json.Number `json:"taskId"`
}

func (p *TaskRefParams) Normalize() error {
	return requireID("taskId", p.TaskID)
}

// TaskAmountParams carries a task and an amount (TaskPaid, RewardIncreased).
type TaskAmountParams struct {
	TaskID json.Number     `json:"taskId"`
	Amount decimal.Decimal `json:"amount"`
}

func (p *TaskAmountParams) Normalize() error {
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	return requireAmount("amount", p.Amount)
}

// DeadlineChangedParams moves a task deadline.
type DeadlineChangedParams struct {
	TaskID      json.Number `json:"taskId"`
	NewDeadline int64       `json:"newDeadline"`
}

func (p *DeadlineChangedParams) Normalize() error {
	return requireID("taskId", p.TaskID)
}

// DisputeFiledParams opens a dispute over a task.
type DisputeFiledParams struct {
	DisputeID    json.Number     `json:"disputeId"`
	TaskID       json.Number     `json:"taskId"`
	TaskContract string          `json:"taskContract"`
	Worker       string          `json:"worker"`
	TaskCreator  string          `json:"taskCreator"`
	RewardAmount decimal.Decimal `json:"rewardAmount"`
	Proof        string          `json:"proof"`
}

func (p *DisputeFiledParams) Normalize() error {
	if err := requireID("disputeId", p.DisputeID); err != nil {
		return err
	}
	if err := requireID("taskId", p.TaskID); err != nil {
		return err
	}
	if err := requireAmount("rewardAmount", p.RewardAmount); err != nil {
		return err
	}
	if err := normalizeAddr("taskContract", &p.TaskContract); err != nil {
		return err
	}
	if err := normalizeAddr("worker", &p.Worker); err != nil {
		return err
	}
	return normalizeAddr("taskCreator", &p.TaskCreator)
}

// AdminVotedParams records one admin's proposed worker share.
type AdminVotedParams struct {
	DisputeID   json.Number     `json:"disputeId"`
	Admin       string          `json:"admin"`
	WorkerShare decimal.Decimal `json:"workerShare"`
}

func (p *AdminVotedParams) Normalize() error {
	if err := requireID("disputeId", p.DisputeID); err != nil {
		return err
	}
	if err := requireAmount("workerShare", p.WorkerShare); err != nil {
		return err
	}
	return normalizeAddr("admin", &p.Admin)
}

// DisputeResolvedParams carries the aggregated vote outcome.
type DisputeResolvedParams struct {
	DisputeID   json.Number     `json:"disputeId"`
	WorkerShare decimal.Decimal `json:"workerShare"`
}

func (p *DisputeResolvedParams) Normalize() error {
	if err := requireID("disputeId", p.DisputeID); err != nil {
		return err
	}
	return requireAmount("workerShare", p.WorkerShare)
}

// DisputeRefParams only references a dispute (approvals, distribution, rejection).
type DisputeRefParams struct {
	DisputeID json.Number `json:"disputeId"`
}

func (p *DisputeRefParams) Normalize() error {
	return requireID("disputeId", p.DisputeID)
}

// AdminStakeParams carries an admin and an amount (AdminStaked, AdminWithdrawn).
type AdminStakeParams struct {
	Admin  string          `json:"admin"`
	Amount decimal.Decimal `json:"amount"`
}

func (p *AdminStakeParams) Normalize() error {
	if err := requireAmount("amount", p.Amount); err != nil {
		return err
	}
	return normalizeAddr("admin", &p.Admin)
}

// UserProfileUpdatedParams is emitted by the user info contract.
type UserProfileUpdatedParams struct {
	User    string `json:"user"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Bio     string `json:"bio"`
	Website string `json:"website"`
}

func (p *UserProfileUpdatedParams) Normalize() error {
	return normalizeAddr("user", &p.User)
}

// UserSkillsUpdatedParams replaces a user's skill list.
type UserSkillsUpdatedParams struct {
	User   string   `json:"user"`
	Skills []string `json:"skills"`
}

func (p *UserSkillsUpdatedParams) Normalize() error {
	return normalizeAddr("user", &p.User)
}
