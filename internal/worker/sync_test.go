package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
	"github.com/season-tracker/internal/store"
)

type fakeRepo struct {
	mu        sync.Mutex
	teams     []domain.TeamRecord
	profiles  []domain.UserProfile
	batches   int
	snapshots []domain.TeamRecord
	err       error
}

func (r *fakeRepo) UpsertTeamSnapshots(_ context.Context, teams []domain.TeamRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.teams = append([]domain.TeamRecord(nil), teams...)
	return nil
}

func (r *fakeRepo) GetTeamSnapshots(context.Context) ([]domain.TeamRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots, r.err
}

func (r *fakeRepo) UpsertProfileSnapshots(_ context.Context, profiles []domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = append(r.profiles, profiles...)
	r.batches++
	return nil
}

func (r *fakeRepo) teamCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.teams)
}

func newTestService(t *testing.T) (*service.SeasonService, store.Store) {
	t.Helper()
	mem := store.NewMemory()
	cfg := config.DefaultConfig().Season
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewSeasonService(mem, nil, nil, &cfg, logger), mem
}

func join(t *testing.T, svc *service.SeasonService, id string, side domain.Side) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.For(id).Start(ctx, id, id+"@example.com")
	require.NoError(t, err)
	res, err := svc.For(id).LockTeam(ctx, side)
	require.NoError(t, err)
	require.True(t, res.Applied)
}

func newWorker(svc *service.SeasonService, repo SnapshotRepository, batch int) *SyncWorker {
	cfg := &config.SyncConfig{Interval: 10 * time.Millisecond, BatchSize: batch, Enabled: true}
	return NewSyncWorker(svc, repo, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunOnce_SnapshotsTeamsAndRosteredProfiles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	join(t, svc, "ana", domain.SideNice)
	join(t, svc, "ben", domain.SideNice)
	join(t, svc, "cy", domain.SideNaughty)
	_, err := svc.For("loner").Start(ctx, "loner", "loner@example.com")
	require.NoError(t, err)

	_, err = svc.CreditTeam(ctx, domain.SideNaughty, 45)
	require.NoError(t, err)

	repo := &fakeRepo{}
	w := newWorker(svc, repo, 2)
	require.NoError(t, w.RunOnce(ctx))

	require.Len(t, repo.teams, 2)
	assert.Equal(t, int64(45), repo.teams[1].Experience)

	ids := make([]string, 0, len(repo.profiles))
	for _, p := range repo.profiles {
		ids = append(ids, p.IdentityID)
	}
	assert.ElementsMatch(t, []string{"ana", "ben", "cy"}, ids)
	assert.Equal(t, 2, repo.batches)
}

func TestRunOnce_SkipsMissingProfiles(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	join(t, svc, "ana", domain.SideNice)
	require.NoError(t, st.Write(ctx, "rosters/nice", domain.Roster{Side: domain.SideNice, Members: []string{"ana", "ghost"}}))

	repo := &fakeRepo{}
	require.NoError(t, newWorker(svc, repo, 0).RunOnce(ctx))
	require.Len(t, repo.profiles, 1)
	assert.Equal(t, "ana", repo.profiles[0].IdentityID)
}

func TestRunOnce_PropagatesRepositoryErrors(t *testing.T) {
	svc, _ := newTestService(t)
	repo := &fakeRepo{err: errors.New("db down")}

	err := newWorker(svc, repo, 0).RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestRestoreTeams_FillsOnlyAbsentTeams(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreditTeam(ctx, domain.SideNice, 10)
	require.NoError(t, err)

	repo := &fakeRepo{snapshots: []domain.TeamRecord{
		{Side: domain.SideNice, Progress: domain.Progress{Level: 5, Experience: 1, Ceiling: 1100}},
		{Side: domain.SideNaughty, Progress: domain.Progress{Level: 2, Experience: 30, Ceiling: 500}},
	}}
	require.NoError(t, newWorker(svc, repo, 0).RestoreTeams(ctx))

	teams, err := svc.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), teams[0].Experience)
	assert.Equal(t, 2, teams[1].Level)
	assert.Equal(t, int64(30), teams[1].Experience)
}

func TestStartStop_RunsOnTicker(t *testing.T) {
	svc, _ := newTestService(t)
	repo := &fakeRepo{}
	w := newWorker(svc, repo, 0)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	assert.Eventually(t, func() bool { return repo.teamCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
