package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexa-dashboard/internal/storage"
)

func TestUsersEnsureIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Users.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, first.IsPremium)
	assert.Nil(t, first.PremiumGuildID)

	second, err := svc.Users.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, rawCount(t, store, storage.CollectionUsers, nil))
}

func TestUsersAssignPremiumGuild(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Users.AssignPremiumGuild(ctx, "ghost", "G1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Users.Ensure(ctx, "free")
	require.NoError(t, err)
	_, err = svc.Users.AssignPremiumGuild(ctx, "free", "G1")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Collection(storage.CollectionUsers).Insert(ctx, map[string]any{"discord_id": "paid", "is_premium": true})
	require.NoError(t, err)
	user, err := svc.Users.AssignPremiumGuild(ctx, "paid", "G1")
	require.NoError(t, err)
	require.NotNil(t, user.PremiumGuildID)
	assert.Equal(t, "G1", *user.PremiumGuildID)

	premium, err := svc.Premium.IsEffectivelyPremium(ctx, "G1")
	require.NoError(t, err)
	assert.True(t, premium)

	user, err = svc.Users.AssignPremiumGuild(ctx, "paid", "")
	require.NoError(t, err)
	assert.Nil(t, user.PremiumGuildID)

	premium, err = svc.Premium.IsEffectivelyPremium(ctx, "G1")
	require.NoError(t, err)
	assert.False(t, premium)
}
