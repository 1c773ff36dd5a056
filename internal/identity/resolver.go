// Package identity turns wallet addresses into User entities.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// Resolver creates users on first reference.
type Resolver struct {
	users store.Users
}

// NewResolver creates a Resolver over users.
func NewResolver(users store.Users) *Resolver {
	return &Resolver{users: users}
}

// UserID derives the user id from an address.
func UserID(address string) (string, error) {
	return domain.NormalizeAddress(address)
}

// GetOrCreateUser returns the user for address, creating one with an empty
// profile if none exists. The zero address is a valid user.
func (r *Resolver) GetOrCreateUser(ctx context.Context, address string, at time.Time) (*domain.User, error) {
	id, err := UserID(address)
	if err != nil {
		return nil, err
	}

	user, err := r.users.EnsureUser(ctx, &domain.User{
		Address:   id,
		CreatedAt: at,
		UpdatedAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", id, err)
	}
	return user, nil
}

// Resolve creates every address in addrs that is not yet a user.
func (r *Resolver) Resolve(ctx context.Context, at time.Time, addrs ...string) error {
	for _, addr := range addrs {
		if _, err := r.GetOrCreateUser(ctx, addr, at); err != nil {
			return err
		}
	}
	return nil
}
