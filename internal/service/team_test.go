package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

func TestCreditTeam_DefaultsAndRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	credit, err := f.svc.CreditTeam(ctx, domain.SideNice, 40)
	require.NoError(t, err)
	assert.Equal(t, domain.Progress{Level: 1, Experience: 40, Ceiling: 300}, credit.Record.Progress)

	credit, err = f.svc.CreditTeam(ctx, domain.SideNice, 300)
	require.NoError(t, err)
	assert.Equal(t, 1, credit.LevelsGained)
	assert.Equal(t, domain.Progress{Level: 2, Experience: 40, Ceiling: 500}, credit.Record.Progress)
}

func TestCreditTeam_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreditTeam(ctx, domain.SideNice, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.CreditTeam(ctx, domain.Side("elves"), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestCreditTeam_ConcurrentCreditsAreNotLost(t *testing.T) {
	var barrier *barrierStore
	f := newFixtureWithStore(t, func(inner store.Store) store.Store {
		barrier = newBarrierStore(inner, "teams/nice", 2)
		return barrier
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreditTeam(ctx, domain.SideNice, 40)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec := f.storedTeam(t, domain.SideNice)
	assert.Equal(t, int64(80), rec.Experience)
	assert.Equal(t, 1, rec.Level)
	// both read the same start; the loser re-ran its update once
	assert.Equal(t, int32(3), barrier.calls.Load())
}

func TestCreditTeam_ManyWriters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreditTeam(ctx, domain.SideNaughty, 40)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 800 total: 300 + 500 consumed, 0 left at level 3
	rec := f.storedTeam(t, domain.SideNaughty)
	assert.Equal(t, domain.Progress{Level: 3, Experience: 0, Ceiling: 700}, rec.Progress)
}

func TestEnsureTeams_WritesDefaultsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreditTeam(ctx, domain.SideNice, 50)
	require.NoError(t, err)
	require.NoError(t, f.svc.EnsureTeams(ctx))
	require.NoError(t, f.svc.EnsureTeams(ctx))

	assert.Equal(t, int64(50), f.storedTeam(t, domain.SideNice).Experience)
	assert.Equal(t, domain.NewTeamRecord(domain.SideNaughty, 300), f.storedTeam(t, domain.SideNaughty))
}

func TestTeams_ReturnsDefaultsForMissing(t *testing.T) {
	f := newFixture(t)

	teams, err := f.svc.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, domain.SideNice, teams[0].Side)
	assert.Equal(t, domain.SideNaughty, teams[1].Side)
	assert.Equal(t, int64(300), teams[1].Ceiling)
}

func TestWatchTeams_InitialisesAndStreams(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[domain.Side]domain.TeamRecord)
	subs, err := f.svc.WatchTeams(ctx, func(rec domain.TeamRecord) {
		mu.Lock()
		seen[rec.Side] = rec
		mu.Unlock()
	})
	require.NoError(t, err)
	defer func() {
		for _, s := range subs {
			_ = s.Close()
		}
	}()

	// both absent teams were written with defaults
	f.storedTeam(t, domain.SideNice)
	f.storedTeam(t, domain.SideNaughty)

	_, err = f.svc.CreditTeam(ctx, domain.SideNaughty, 70)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[domain.SideNaughty].Experience == 70 && seen[domain.SideNice].Ceiling == 300
	}, time.Second, 10*time.Millisecond)
}

func TestRestoreTeams_OnlyFillsAbsentRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreditTeam(ctx, domain.SideNice, 25)
	require.NoError(t, err)

	snapshots := []domain.TeamRecord{
		{Side: domain.SideNice, Progress: domain.Progress{Level: 4, Experience: 10, Ceiling: 900}},
		{Side: domain.SideNaughty, Progress: domain.Progress{Level: 3, Experience: 120, Ceiling: 700}},
		{Side: domain.Side("elves"), Progress: domain.Progress{Level: 9, Ceiling: 10}},
	}
	restored, err := f.svc.RestoreTeams(ctx, snapshots)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	assert.Equal(t, int64(25), f.storedTeam(t, domain.SideNice).Experience)
	assert.Equal(t, snapshots[1], f.storedTeam(t, domain.SideNaughty))
}
