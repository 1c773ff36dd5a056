package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/shopspring/decimal"
)

// getDispute loads the dispute referenced by an event.
func (p *Projector) getDispute(ctx context.Context, rawID json.Number) (*domain.Dispute, error) {
	id := domain.EntityID(rawID)
	d, err := p.store.GetDispute(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: dispute %s", domain.ErrMissingParent, id)
		}
		return nil, fmt.Errorf("get dispute %s: %w", id, err)
	}
	return d, nil
}

func requireDisputeStatus(evt domain.Event, d *domain.Dispute, want domain.DisputeStatus) error {
	if d.Status != want {
		return fmt.Errorf("%w: %s on %s dispute %s", domain.ErrInvalidTransition, evt.Name, d.Status, d.ID)
	}
	return nil
}

func (p *Projector) putDispute(ctx context.Context, d *domain.Dispute) error {
	if err := p.store.PutDispute(ctx, d); err != nil {
		return fmt.Errorf("put dispute %s: %w", d.ID, err)
	}
	return nil
}

// DisputeFiled opens a dispute over a task.
func (p *Projector) DisputeFiled(ctx context.Context, evt domain.Event, params *domain.DisputeFiledParams) error {
	id := domain.EntityID(params.DisputeID)
	_, err := p.store.GetDispute(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: dispute %s", domain.ErrDuplicateCreation, id)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("get dispute %s: %w", id, err)
	}

	at := evt.Time()
	if err := p.identity.Resolve(ctx, at, params.Worker, params.TaskCreator); err != nil {
		return err
	}

	return p.putDispute(ctx, &domain.Dispute{
		ID:           id,
		TaskID:       domain.EntityID(params.TaskID),
		TaskContract: params.TaskContract,
		Worker:       params.Worker,
		TaskCreator:  params.TaskCreator,
		RewardAmount: params.RewardAmount,
		WorkerShare:  decimal.Zero,
		ProofOfWork:  params.Proof,
		Status:       domain.DisputeStatusFiled,
		CreatedAt:    at,
	})
}

// AdminVoted records one admin's proposed worker share. An admin votes at
// most once per round; a vote left over from a rejected round is replaced.
func (p *Projector) AdminVoted(ctx context.Context, evt domain.Event, params *domain.AdminVotedParams) error {
	d, err := p.getDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}
	if err := requireDisputeStatus(evt, d, domain.DisputeStatusFiled); err != nil {
		return err
	}
	if d.HasVoteFrom(params.Admin) {
		return fmt.Errorf("%w: vote %s", domain.ErrDuplicateCreation, domain.VoteID(d.ID, params.Admin))
	}

	vote := &domain.AdminVote{
		ID:          domain.VoteID(d.ID, params.Admin),
		DisputeID:   d.ID,
		Admin:       params.Admin,
		WorkerShare: params.WorkerShare,
		CreatedAt:   evt.Time(),
	}
	if err := p.store.PutVote(ctx, vote); err != nil {
		return fmt.Errorf("put vote %s: %w", vote.ID, err)
	}
	if err := p.store.AppendDisputeVote(ctx, d.ID, vote.ID); err != nil {
		return fmt.Errorf("append vote %s: %w", vote.ID, err)
	}
	return nil
}

// DisputeResolved records the aggregated outcome of the vote.
func (p *Projector) DisputeResolved(ctx context.Context, evt domain.Event, params *domain.DisputeResolvedParams) error {
	d, err := p.getDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}
	if err := requireDisputeStatus(evt, d, domain.DisputeStatusFiled); err != nil {
		return err
	}

	at := evt.Time()
	d.Status = domain.DisputeStatusResolved
	d.WorkerShare = params.WorkerShare
	d.ResolvedAt = &at
	return p.putDispute(ctx, d)
}

// ProposalApprovedByWorker records the worker's acceptance of the outcome.
func (p *Projector) ProposalApprovedByWorker(ctx context.Context, evt domain.Event, params *domain.DisputeRefParams) error {
	return p.approveProposal(ctx, evt, params, func(d *domain.Dispute) { d.WorkerApproved = true })
}

// ProposalApprovedByCreator records the creator's acceptance of the outcome.
func (p *Projector) ProposalApprovedByCreator(ctx context.Context, evt domain.Event, params *domain.DisputeRefParams) error {
	return p.approveProposal(ctx, evt, params, func(d *domain.Dispute) { d.CreatorApproved = true })
}

func (p *Projector) approveProposal(ctx context.Context, evt domain.Event, params *domain.DisputeRefParams, approve func(*domain.Dispute)) error {
	d, err := p.getDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}
	if err := requireDisputeStatus(evt, d, domain.DisputeStatusResolved); err != nil {
		return err
	}
	approve(d)
	return p.putDispute(ctx, d)
}

// FundsDistributed closes a resolved dispute. Approvals are enforced by the
// contract and are not checked again here.
func (p *Projector) FundsDistributed(ctx context.Context, evt domain.Event, params *domain.DisputeRefParams) error {
	d, err := p.getDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}
	if err := requireDisputeStatus(evt, d, domain.DisputeStatusResolved); err != nil {
		return err
	}

	at := evt.Time()
	d.Status = domain.DisputeStatusDistributed
	d.DistributedAt = &at
	return p.putDispute(ctx, d)
}

// ProposalRejected reopens the dispute for a new voting round.
func (p *Projector) ProposalRejected(ctx context.Context, evt domain.Event, params *domain.DisputeRefParams) error {
	d, err := p.getDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}
	if err := requireDisputeStatus(evt, d, domain.DisputeStatusResolved); err != nil {
		return err
	}

	// Votes go first: once the status flips back to Filed a redelivered
	// rejection is skipped and could no longer clear them.
	if err := p.store.ClearDisputeVotes(ctx, d.ID); err != nil {
		return fmt.Errorf("clear votes of dispute %s: %w", d.ID, err)
	}

	d.Status = domain.DisputeStatusFiled
	d.WorkerApproved = false
	d.CreatorApproved = false
	d.WorkerShare = decimal.Zero
	d.ResolvedAt = nil
	d.VoteIDs = nil
	return p.putDispute(ctx, d)
}

// AdminStaked registers or restakes an admin.
func (p *Projector) AdminStaked(ctx context.Context, evt domain.Event, params *domain.AdminStakeParams) error {
	at := evt.Time()
	a, err := p.store.GetAdmin(ctx, params.Admin)
	switch {
	case errors.Is(err, store.ErrNotFound):
		a = &domain.Admin{Address: params.Admin, CreatedAt: at}
	case err != nil:
		return fmt.Errorf("get admin %s: %w", params.Admin, err)
	}

	a.StakeAmount = params.Amount
	a.IsActive = true
	a.UpdatedAt = at
	if err := p.store.PutAdmin(ctx, a); err != nil {
		return fmt.Errorf("put admin %s: %w", a.Address, err)
	}
	return nil
}

// AdminWithdrawn deactivates an admin and zeroes the stake. The record is kept.
func (p *Projector) AdminWithdrawn(ctx context.Context, evt domain.Event, params *domain.AdminStakeParams) error {
	a, err := p.store.GetAdmin(ctx, params.Admin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: admin %s", domain.ErrMissingParent, params.Admin)
		}
		return fmt.Errorf("get admin %s: %w", params.Admin, err)
	}

	a.StakeAmount = decimal.Zero
	a.IsActive = false
	a.UpdatedAt = evt.Time()
	if err := p.store.PutAdmin(ctx, a); err != nil {
		return fmt.Errorf("put admin %s: %w", a.Address, err)
	}
	return nil
}
