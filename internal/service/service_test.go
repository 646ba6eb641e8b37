package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

var testNow = time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeArchive struct {
	mu          sync.Mutex
	submissions []domain.Submission
	awards      []domain.Award
	undone      []string
	rewards     []domain.RewardEvent
}

func (a *fakeArchive) RecordSubmission(_ context.Context, sub domain.Submission) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submissions = append(a.submissions, sub)
	return nil
}

func (a *fakeArchive) RecordAward(_ context.Context, award domain.Award) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awards = append(a.awards, award)
	return nil
}

func (a *fakeArchive) RecordAwardUndo(_ context.Context, awardID string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.undone = append(a.undone, awardID)
	return nil
}

func (a *fakeArchive) RecordRewardEvent(_ context.Context, event domain.RewardEvent, _ domain.RewardResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rewards = append(a.rewards, event)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	profiles []domain.UserProfile
}

func (n *recordingNotifier) ProfileChanged(p *domain.UserProfile) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.profiles = append(n.profiles, *p)
}

// failingStore fails every write once broken is set
type failingStore struct {
	store.Store
	broken atomic.Bool
}

func (f *failingStore) err(path string) error {
	return fmt.Errorf("writing %s: %w", path, domain.ErrStoreUnavailable)
}

func (f *failingStore) Write(ctx context.Context, path string, value any) error {
	if f.broken.Load() {
		return f.err(path)
	}
	return f.Store.Write(ctx, path, value)
}

func (f *failingStore) Merge(ctx context.Context, path string, fields map[string]any) error {
	if f.broken.Load() {
		return f.err(path)
	}
	return f.Store.Merge(ctx, path, fields)
}

func (f *failingStore) AtomicUpdate(ctx context.Context, path string, fn store.UpdateFunc) (json.RawMessage, error) {
	if f.broken.Load() {
		return nil, f.err(path)
	}
	return f.Store.AtomicUpdate(ctx, path, fn)
}

// barrierStore holds the first read of each atomic update on path until
// parties updates have read, so they all start from the same value
type barrierStore struct {
	store.Store
	path    string
	parties int

	mu      sync.Mutex
	arrived int
	release chan struct{}
	calls   atomic.Int32
}

func newBarrierStore(inner store.Store, path string, parties int) *barrierStore {
	return &barrierStore{Store: inner, path: path, parties: parties, release: make(chan struct{})}
}

func (b *barrierStore) AtomicUpdate(ctx context.Context, path string, fn store.UpdateFunc) (json.RawMessage, error) {
	if path != b.path {
		return b.Store.AtomicUpdate(ctx, path, fn)
	}
	first := true
	return b.Store.AtomicUpdate(ctx, path, func(current json.RawMessage, exists bool) (any, error) {
		b.calls.Add(1)
		if first {
			first = false
			b.arrive()
		}
		return fn(current, exists)
	})
}

func (b *barrierStore) arrive() {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
}

type fixture struct {
	svc     *SeasonService
	mem     *store.Memory
	clock   *testClock
	archive *fakeArchive
	cfg     *config.SeasonConfig
}

func testConfig() *config.SeasonConfig {
	cfg := config.DefaultConfig().Season
	cfg.Profile.Growth = 200
	cfg.Admins = []string{"admin"}
	return &cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore wraps the in-memory store with wrap when non-nil
func newFixtureWithStore(t *testing.T, wrap func(store.Store) store.Store) *fixture {
	t.Helper()
	mem := store.NewMemory()
	var st store.Store = mem
	if wrap != nil {
		st = wrap(mem)
	}
	cfg := testConfig()
	archive := &fakeArchive{}
	clock := &testClock{now: testNow}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewSeasonService(st, nil, archive, cfg, logger)
	svc.SetClock(clock.Now)
	return &fixture{svc: svc, mem: mem, clock: clock, archive: archive, cfg: cfg}
}

// player starts a session and optionally locks a team
func (f *fixture) player(t *testing.T, id string, side domain.Side) *Session {
	t.Helper()
	ss := f.svc.For(id)
	_, err := ss.Start(context.Background(), "Player "+id, id+"@example.com")
	require.NoError(t, err)
	if side != domain.SideNone {
		res, err := ss.LockTeam(context.Background(), side)
		require.NoError(t, err)
		require.True(t, res.Applied)
	}
	return ss
}

// setProfile seeds the stored profile through fn
func (f *fixture) setProfile(t *testing.T, id string, fn func(p *domain.UserProfile)) {
	t.Helper()
	_, err := f.svc.updateProfile(context.Background(), id, func(p *domain.UserProfile) error {
		fn(p)
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) storedProfile(t *testing.T, id string) domain.UserProfile {
	t.Helper()
	p, ok, err := store.ReadInto[domain.UserProfile](context.Background(), f.mem, userPath(id))
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func (f *fixture) storedTeam(t *testing.T, side domain.Side) domain.TeamRecord {
	t.Helper()
	rec, ok, err := store.ReadInto[domain.TeamRecord](context.Background(), f.mem, teamPath(side))
	require.NoError(t, err)
	require.True(t, ok)
	return rec
}
