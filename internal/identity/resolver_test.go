package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/identity"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := identity.NewResolver(st)

	first := time.Unix(100, 0).UTC()
	u, err := r.GetOrCreateUser(ctx, "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD", first)
	require.NoError(t, err)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", u.Address)
	assert.Nil(t, u.Profile)
	assert.Equal(t, first, u.CreatedAt)

	u2, err := r.GetOrCreateUser(ctx, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, u2.CreatedAt, "existing user must not be recreated")
}

func TestGetOrCreateUser_ZeroAddress(t *testing.T) {
	r := identity.NewResolver(store.NewMemoryStore())

	u, err := r.GetOrCreateUser(context.Background(), domain.ZeroAddress, time.Unix(1, 0))
	require.NoError(t, err)
	assert.True(t, domain.IsZeroAddress(u.Address))
}

func TestGetOrCreateUser_RejectsMalformed(t *testing.T) {
	r := identity.NewResolver(store.NewMemoryStore())

	for _, addr := range []string{"", "0x123", "abcdefabcdefabcdefabcdefabcdefabcdefabcdef", "0xzzzzefabcdefabcdefabcdefabcdefabcdefabcd"} {
		_, err := r.GetOrCreateUser(context.Background(), addr, time.Unix(1, 0))
		assert.ErrorIs(t, err, domain.ErrInvalidAddress, addr)
	}
}
