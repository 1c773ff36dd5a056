package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/shopspring/decimal"
)

// TaskCreated creates an Open task with no worker. A second creation of the
// same task is skipped.
func (p *Projector) TaskCreated(ctx context.Context, evt domain.Event, params *domain.TaskCreatedParams) error {
	kind, err := taskKind(evt)
	if err != nil {
		return err
	}
	id := domain.EntityID(params.TaskID)

	_, err = p.store.GetTask(ctx, kind, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: task %s/%s", domain.ErrDuplicateCreation, kind, id)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("get task %s/%s: %w", kind, id, err)
	}

	at := evt.Time()
	if err := p.identity.Resolve(ctx, at, params.Creator, domain.ZeroAddress); err != nil {
		return err
	}

	task := &domain.Task{
		Kind:        kind,
		ID:          id,
		Title:       params.Title,
		Description: params.Description,
		Creator:     params.Creator,
		Worker:      domain.ZeroAddress,
		Reward:      decimal.Zero,
		Deadline:    params.Deadline,
		Status:      domain.TaskStatusOpen,
		CreatedAt:   at,
	}
	return p.saveTask(ctx, evt, task)
}

// BidSubmitted records a bid on an open bidding task. A bidder bidding again
// overwrites the earlier bid.
func (p *Projector) BidSubmitted(ctx context.Context, evt domain.Event, params *domain.BidSubmittedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if task.Kind != domain.TaskKindBidding {
		return fmt.Errorf("%w: bid on %s task %s", domain.ErrInvalidTransition, task.Kind, task.ID)
	}
	if err := requireStatus(evt, task, domain.TaskStatusOpen); err != nil {
		return err
	}

	at := evt.Time()
	if _, err := p.identity.GetOrCreateUser(ctx, params.Bidder, at); err != nil {
		return err
	}

	bid := &domain.Bid{
		ID:            domain.BidID(task.ID, params.Bidder),
		TaskID:        task.ID,
		Bidder:        params.Bidder,
		Amount:        params.Amount,
		EstimatedTime: params.EstimatedTime,
		Description:   params.Description,
		CreatedAt:     at,
	}
	if err := p.store.PutBid(ctx, bid); err != nil {
		return fmt.Errorf("put bid %s: %w", bid.ID, err)
	}
	if err := p.store.AppendTaskBid(ctx, task.ID, bid.ID); err != nil {
		return fmt.Errorf("append bid %s: %w", bid.ID, err)
	}
	return p.saveTask(ctx, evt, task)
}

// WorkerAdded assigns the worker and starts the task.
func (p *Projector) WorkerAdded(ctx context.Context, evt domain.Event, params *domain.WorkerAddedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	// InProgress is accepted so that a re-delivered assignment converges.
	if err := requireStatus(evt, task, domain.TaskStatusOpen, domain.TaskStatusInProgress); err != nil {
		return err
	}

	if _, err := p.identity.GetOrCreateUser(ctx, params.Worker, evt.Time()); err != nil {
		return err
	}

	reward, err := p.assignedReward(ctx, task, params)
	if err != nil {
		return err
	}

	task.Worker = params.Worker
	task.Reward = reward
	task.Status = domain.TaskStatusInProgress
	return p.saveTask(ctx, evt, task)
}

// assignedReward picks the reward a task carries once a worker is assigned.
func (p *Projector) assignedReward(ctx context.Context, task *domain.Task, params *domain.WorkerAddedParams) (decimal.Decimal, error) {
	switch task.Kind {
	case domain.TaskKindBidding:
		bid, err := p.store.GetBid(ctx, domain.BidID(task.ID, params.Worker))
		switch {
		case err == nil:
			return bid.Amount, nil
		case errors.Is(err, store.ErrNotFound):
			return params.Amount, nil
		default:
			return decimal.Zero, fmt.Errorf("get winning bid for task %s: %w", task.ID, err)
		}
	case domain.TaskKindMilestone:
		if params.Amount.IsPositive() {
			return params.Amount, nil
		}
		return p.milestoneTotal(ctx, task.ID)
	default:
		return params.Amount, nil
	}
}

// ProofOfWorkSubmitted stores the worker's proof on the task, or on one
// milestone when the event names a milestone index.
func (p *Projector) ProofOfWorkSubmitted(ctx context.Context, evt domain.Event, params *domain.ProofSubmittedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if params.MilestoneIndex != nil {
		return p.submitMilestoneProof(ctx, evt, task, *params.MilestoneIndex, params.Proof)
	}

	if err := requireStatus(evt, task, domain.TaskStatusInProgress); err != nil {
		return err
	}
	task.ProofOfWork = params.Proof
	return p.saveTask(ctx, evt, task)
}

// ProofOfWorkApproved completes the task, or approves one milestone.
func (p *Projector) ProofOfWorkApproved(ctx context.Context, evt domain.Event, params *domain.ProofApprovedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if params.MilestoneIndex != nil {
		return p.approveMilestone(ctx, evt, task, *params.MilestoneIndex)
	}

	if err := requireStatus(evt, task, domain.TaskStatusInProgress); err != nil {
		return err
	}
	if err := transition(task, domain.TaskStatusCompleted); err != nil {
		return err
	}
	return p.saveTask(ctx, evt, task)
}

// TaskCancelled cancels an open or running task.
func (p *Projector) TaskCancelled(ctx context.Context, evt domain.Event, params *domain.TaskRefParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if err := transition(task, domain.TaskStatusCancelled); err != nil {
		return err
	}
	return p.saveTask(ctx, evt, task)
}

// TaskPaid settles the task with the amount actually paid out.
func (p *Projector) TaskPaid(ctx context.Context, evt domain.Event, params *domain.TaskAmountParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if err := transition(task, domain.TaskStatusPaid); err != nil {
		return err
	}
	task.Reward = params.Amount
	return p.saveTask(ctx, evt, task)
}

// RewardIncreased overwrites the reward with the contract's new total.
func (p *Projector) RewardIncreased(ctx context.Context, evt domain.Event, params *domain.TaskAmountParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	task.Reward = params.Amount
	return p.saveTask(ctx, evt, task)
}

// DeadlineChanged moves the deadline.
func (p *Projector) DeadlineChanged(ctx context.Context, evt domain.Event, params *domain.DeadlineChangedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	task.Deadline = params.NewDeadline
	return p.saveTask(ctx, evt, task)
}
