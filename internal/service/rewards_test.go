package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/domain"
)

func TestApplyReward(t *testing.T) {
	f := newFixture(t)
	f.player(t, "u1", domain.SideNaughty)

	res, err := f.svc.ApplyReward(context.Background(), domain.RewardEvent{
		IdentityID: "u1",
		Source:     "quest",
		Experience: 650,
		Currency:   40,
		TeamXP:     40,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RewardResult{LevelsGained: 1, CurrencyGranted: 40}, res)

	p := f.storedProfile(t, "u1")
	assert.Equal(t, domain.Progress{Level: 2, Experience: 50, Ceiling: 800}, p.Progress)
	assert.Equal(t, int64(40), f.storedTeam(t, domain.SideNaughty).Experience)
	assert.Len(t, f.archive.rewards, 1)
}

func TestApplyReward_Rollover(t *testing.T) {
	f := newFixture(t)
	f.player(t, "u1", domain.SideNone)
	ctx := context.Background()

	_, err := f.svc.ApplyReward(ctx, domain.RewardEvent{IdentityID: "u1", Experience: 650})
	require.NoError(t, err)
	_, err = f.svc.ApplyReward(ctx, domain.RewardEvent{IdentityID: "u1", Experience: 850})
	require.NoError(t, err)

	assert.Equal(t, domain.Progress{Level: 3, Experience: 100, Ceiling: 1000}, f.storedProfile(t, "u1").Progress)
}

func TestApplyReward_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyReward(ctx, domain.RewardEvent{Experience: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.ApplyReward(ctx, domain.RewardEvent{IdentityID: "u1", Currency: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.ApplyReward(ctx, domain.RewardEvent{IdentityID: "ghost", Experience: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecipes_AdminLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.AddRecipe(ctx, "admin", " Snow ", "Carrot", "Snowman")
	require.NoError(t, err)
	assert.Equal(t, "Snow", r.ItemA)

	_, err = f.svc.AddRecipe(ctx, "admin", "Snow", "", "Nothing")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.AddRecipe(ctx, "u1", "a", "b", "c")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := f.svc.ListRecipes(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	require.NoError(t, f.svc.DeleteRecipe(ctx, "admin", r.ID))
	list, err = f.svc.ListRecipes(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, f.svc.DeleteRecipe(ctx, "admin", r.ID), domain.ErrNotFound)
}
