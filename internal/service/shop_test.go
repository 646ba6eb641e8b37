package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

func TestPurchase_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ss := f.player(t, "u1", domain.SideNice)
	f.setProfile(t, "u1", func(p *domain.UserProfile) { p.Currency = 1000 })

	res, err := ss.Purchase(context.Background(), domain.CategoryTheme, "frost", domain.AlwaysConfirm)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePurchased, res.Outcome)

	p := f.storedProfile(t, "u1")
	assert.Zero(t, p.Currency)
	assert.True(t, p.OwnedCosmetics[domain.CategoryTheme]["frost"])
	assert.True(t, p.OwnedCosmetics[domain.CategoryTheme]["default"])
	assert.Equal(t, "frost", p.ActiveCosmetic[domain.CategoryTheme])
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ss := f.player(t, "u1", domain.SideNice)
	f.setProfile(t, "u1", func(p *domain.UserProfile) { p.Currency = 500 })

	_, err := ss.Purchase(context.Background(), domain.CategoryTheme, "frost", domain.AlwaysConfirm)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	p := f.storedProfile(t, "u1")
	assert.Equal(t, int64(500), p.Currency)
	assert.False(t, p.OwnedCosmetics[domain.CategoryTheme]["frost"])
}

func TestPurchase_DeclinedAndConfirmAskedOnce(t *testing.T) {
	f := newFixture(t)
	ss := f.player(t, "u1", domain.SideNice)
	f.setProfile(t, "u1", func(p *domain.UserProfile) { p.Currency = 5000 })

	asked := 0
	_, err := ss.Purchase(context.Background(), domain.CategoryEffect, "starlight", func() bool {
		asked++
		return false
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 1, asked)
	assert.Equal(t, int64(5000), f.storedProfile(t, "u1").Currency)

	asked = 0
	_, err = ss.Purchase(context.Background(), domain.CategoryEffect, "starlight", func() bool {
		asked++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
	assert.Equal(t, int64(3800), f.storedProfile(t, "u1").Currency)
}

func TestPurchase_StoreUnavailableLeavesProfile(t *testing.T) {
	var fs *failingStore
	f := newFixtureWithStore(t, func(inner store.Store) store.Store {
		fs = &failingStore{Store: inner}
		return fs
	})
	ss := f.player(t, "u1", domain.SideNice)
	f.setProfile(t, "u1", func(p *domain.UserProfile) { p.Currency = 1000 })
	fs.broken.Store(true)

	_, err := ss.Purchase(context.Background(), domain.CategoryTheme, "aurora", domain.AlwaysConfirm)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	p := f.storedProfile(t, "u1")
	assert.Equal(t, int64(1000), p.Currency)
	assert.False(t, p.OwnedCosmetics[domain.CategoryTheme]["aurora"])
	assert.Equal(t, "default", p.ActiveCosmetic[domain.CategoryTheme])
}

func TestPurchase_UnknownItem(t *testing.T) {
	f := newFixture(t)
	ss := f.player(t, "u1", domain.SideNice)

	_, err := ss.Purchase(context.Background(), domain.CategoryTheme, "tinsel", domain.AlwaysConfirm)
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
}

func TestShop_AnnotatesOwnership(t *testing.T) {
	f := newFixture(t)
	ss := f.player(t, "u1", domain.SideNice)
	f.setProfile(t, "u1", func(p *domain.UserProfile) { p.Currency = 1500 })
	_, err := ss.Purchase(context.Background(), domain.CategoryEffect, "aurora", domain.AlwaysConfirm)
	require.NoError(t, err)

	items, currency, err := ss.Shop(context.Background())
	require.NoError(t, err)
	assert.Zero(t, currency)

	for _, it := range items {
		switch {
		case it.Category == domain.CategoryEffect && it.ID == "aurora":
			assert.True(t, it.Owned)
			assert.True(t, it.Equipped)
		case it.Category == domain.CategoryTheme && it.ID == "aurora":
			assert.False(t, it.Owned)
		case it.ID == "default":
			assert.True(t, it.Equipped)
		}
	}
}
