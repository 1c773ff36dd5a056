package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/shopspring/decimal"
)

func requireMilestoneTask(task *domain.Task) error {
	if task.Kind != domain.TaskKindMilestone {
		return fmt.Errorf("%w: milestone on %s task %s", domain.ErrInvalidTransition, task.Kind, task.ID)
	}
	return nil
}

// getMilestone loads a milestone, mapping absence to ErrMissingParent.
func (p *Projector) getMilestone(ctx context.Context, taskID string, index uint32) (*domain.Milestone, error) {
	id := domain.MilestoneID(taskID, index)
	m, err := p.store.GetMilestone(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: milestone %s", domain.ErrMissingParent, id)
		}
		return nil, fmt.Errorf("get milestone %s: %w", id, err)
	}
	return m, nil
}

// milestoneTotal sums the rewards of every milestone of a task.
func (p *Projector) milestoneTotal(ctx context.Context, taskID string) (decimal.Decimal, error) {
	ms, err := p.store.ListMilestones(ctx, taskID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list milestones of task %s: %w", taskID, err)
	}
	total := decimal.Zero
	for _, m := range ms {
		total = total.Add(m.Reward)
	}
	return total, nil
}

// MilestoneAdded adds a milestone to an open or running milestone task and
// recomputes the task's total reward.
func (p *Projector) MilestoneAdded(ctx context.Context, evt domain.Event, params *domain.MilestoneAddedParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if err := requireMilestoneTask(task); err != nil {
		return err
	}
	if err := requireStatus(evt, task, domain.TaskStatusOpen, domain.TaskStatusInProgress); err != nil {
		return err
	}

	id := domain.MilestoneID(task.ID, params.MilestoneIndex)
	_, err = p.store.GetMilestone(ctx, id)
	switch {
	case err == nil:
		// Already created; an earlier partial application may still lack the
		// list entry and the recomputed total, so fall through to those.
	case errors.Is(err, store.ErrNotFound):
		m := &domain.Milestone{
			ID:          id,
			TaskID:      task.ID,
			Index:       params.MilestoneIndex,
			Description: params.Description,
			Reward:      params.Reward,
			CreatedAt:   evt.Time(),
		}
		if err := p.store.PutMilestone(ctx, m); err != nil {
			return fmt.Errorf("put milestone %s: %w", id, err)
		}
	default:
		return fmt.Errorf("get milestone %s: %w", id, err)
	}

	if err := p.store.AppendTaskMilestone(ctx, task.ID, id); err != nil {
		return fmt.Errorf("append milestone %s: %w", id, err)
	}

	if task.Reward, err = p.milestoneTotal(ctx, task.ID); err != nil {
		return err
	}
	return p.saveTask(ctx, evt, task)
}

func (p *Projector) submitMilestoneProof(ctx context.Context, evt domain.Event, task *domain.Task, index uint32, proof string) error {
	if err := requireMilestoneTask(task); err != nil {
		return err
	}
	m, err := p.getMilestone(ctx, task.ID, index)
	if err != nil {
		return err
	}
	// Resubmission is allowed until the creator approves.
	if stage := m.Stage(); stage > domain.MilestoneSubmitted {
		return fmt.Errorf("%w: proof for %s milestone %s", domain.ErrInvalidTransition, stage, m.ID)
	}

	at := evt.Time()
	m.WorkProof.Proof = proof
	m.WorkProof.Submitted = true
	m.WorkProof.SubmittedAt = &at
	if err := p.store.PutMilestone(ctx, m); err != nil {
		return fmt.Errorf("put milestone %s: %w", m.ID, err)
	}
	return p.saveTask(ctx, evt, task)
}

func (p *Projector) approveMilestone(ctx context.Context, evt domain.Event, task *domain.Task, index uint32) error {
	if err := requireMilestoneTask(task); err != nil {
		return err
	}
	m, err := p.getMilestone(ctx, task.ID, index)
	if err != nil {
		return err
	}
	if stage := m.Stage(); stage != domain.MilestoneSubmitted {
		return fmt.Errorf("%w: approve %s milestone %s", domain.ErrInvalidTransition, stage, m.ID)
	}

	m.WorkProof.Approved = true
	if err := p.store.PutMilestone(ctx, m); err != nil {
		return fmt.Errorf("put milestone %s: %w", m.ID, err)
	}
	return p.saveTask(ctx, evt, task)
}

// MilestonePaid marks an approved milestone as paid.
func (p *Projector) MilestonePaid(ctx context.Context, evt domain.Event, params *domain.MilestonePaidParams) error {
	task, err := p.activeTask(ctx, evt, params.TaskID)
	if err != nil {
		return err
	}
	if err := requireMilestoneTask(task); err != nil {
		return err
	}
	m, err := p.getMilestone(ctx, task.ID, params.MilestoneIndex)
	if err != nil {
		return err
	}
	if stage := m.Stage(); stage != domain.MilestoneApproved {
		return fmt.Errorf("%w: pay %s milestone %s", domain.ErrInvalidTransition, stage, m.ID)
	}

	at := evt.Time()
	m.Paid = true
	m.CompletedAt = &at
	if err := p.store.PutMilestone(ctx, m); err != nil {
		return fmt.Errorf("put milestone %s: %w", m.ID, err)
	}
	return p.saveTask(ctx, evt, task)
}
