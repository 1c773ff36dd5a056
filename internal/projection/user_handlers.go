package projection

import (
	"context"
	"fmt"
	"slices"

	"github.com/mtlprog/taskindexer/internal/domain"
)

// UserProfileUpdated replaces the user's profile, keeping its creation time.
func (p *Projector) UserProfileUpdated(ctx context.Context, evt domain.Event, params *domain.UserProfileUpdatedParams) error {
	at := evt.Time()
	user, err := p.identity.GetOrCreateUser(ctx, params.User, at)
	if err != nil {
		return err
	}

	created := at
	if user.Profile != nil {
		created = user.Profile.CreatedAt
	}
	user.Profile = &domain.UserProfile{
		Name:      params.Name,
		Email:     params.Email,
		Bio:       params.Bio,
		Website:   params.Website,
		CreatedAt: created,
		UpdatedAt: at,
	}
	user.UpdatedAt = at
	if err := p.store.PutUser(ctx, user); err != nil {
		return fmt.Errorf("put user %s: %w", user.Address, err)
	}
	return nil
}

// UserSkillsUpdated overwrites the user's skill list.
func (p *Projector) UserSkillsUpdated(ctx context.Context, evt domain.Event, params *domain.UserSkillsUpdatedParams) error {
	at := evt.Time()
	user, err := p.identity.GetOrCreateUser(ctx, params.User, at)
	if err != nil {
		return err
	}

	created := at
	if user.Skills != nil {
		created = user.Skills.CreatedAt
	}
	skills := slices.Clone(params.Skills)
	if skills == nil {
		skills = []string{}
	}
	user.Skills = &domain.UserSkills{
		Skills:    skills,
		CreatedAt: created,
		UpdatedAt: at,
	}
	user.UpdatedAt = at
	if err := p.store.PutUser(ctx, user); err != nil {
		return fmt.Errorf("put user %s: %w", user.Address, err)
	}
	return nil
}
