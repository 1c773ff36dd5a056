package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisputeStatus represents the status of a dispute.
type DisputeStatus string

const (
	DisputeStatusFiled       DisputeStatus = "Filed"
	DisputeStatusResolved    DisputeStatus = "Resolved"
	DisputeStatusDistributed DisputeStatus = "Distributed"
)

// IsValid checks if the status is one of the allowed values.
func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusFiled, DisputeStatusResolved, DisputeStatusDistributed:
		return true
	default:
		return false
	}
}

// Dispute is an adjudication over a task's reward split.
// WorkerShare is only meaningful once the dispute is no longer Filed.
type Dispute struct {
	ID              string
	TaskID          string
	TaskContract    string
	Worker          string
	TaskCreator     string
	RewardAmount    decimal.Decimal
	WorkerShare     decimal.Decimal
	ProofOfWork     string
	Status          DisputeStatus
	WorkerApproved  bool
	CreatorApproved bool
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	DistributedAt   *time.Time
	VoteIDs         []string
}

// HasVoteFrom reports whether admin's vote is in the current voting round.
func (d *Dispute) HasVoteFrom(admin string) bool {
	id := VoteID(d.ID, admin)
	for _, v := range d.VoteIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Admin is a staked participant eligible to vote on disputes.
type Admin struct {
	Address     string
	StakeAmount decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AdminVote is one admin's proposed worker share for a dispute.
type AdminVote struct {
	ID          string
	DisputeID   string
	Admin       string
	WorkerShare decimal.Decimal
	CreatedAt   time.Time
}

// VoteID derives the composite identity of an admin vote.
func VoteID(disputeID, admin string) string {
	return disputeID + "-" + admin
}
