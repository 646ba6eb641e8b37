package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
)

// SnapshotRepository is the durable side of the snapshot worker
type SnapshotRepository interface {
	UpsertTeamSnapshots(ctx context.Context, teams []domain.TeamRecord) error
	GetTeamSnapshots(ctx context.Context) ([]domain.TeamRecord, error)
	UpsertProfileSnapshots(ctx context.Context, profiles []domain.UserProfile) error
}

// SyncWorker periodically copies team records and rostered profiles from
// the live store into PostgreSQL
type SyncWorker struct {
	svc     *service.SeasonService
	repo    SnapshotRepository
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	svc *service.SeasonService,
	repo SnapshotRepository,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		svc:    svc,
		repo:   repo,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("snapshot cycle failed", "error", err)
			}
		}
	}
}

// RunOnce takes one snapshot of both teams and every rostered profile
func (w *SyncWorker) RunOnce(ctx context.Context) error {
	start := time.Now()

	teams, err := w.svc.Teams(ctx)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	if err := w.repo.UpsertTeamSnapshots(ctx, teams); err != nil {
		return fmt.Errorf("saving team snapshots: %w", err)
	}

	synced, skipped, err := w.snapshotProfiles(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("snapshot cycle completed",
		"duration", time.Since(start),
		"teams", len(teams),
		"profiles", synced,
		"skipped", skipped,
	)
	return nil
}

func (w *SyncWorker) snapshotProfiles(ctx context.Context) (synced, skipped int, err error) {
	batchSize := w.config.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	batch := make([]domain.UserProfile, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.repo.UpsertProfileSnapshots(ctx, batch); err != nil {
			return fmt.Errorf("saving profile snapshots: %w", err)
		}
		synced += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, side := range domain.Sides {
		roster, err := w.svc.Roster(ctx, side)
		if err != nil {
			return synced, skipped, err
		}
		for _, id := range roster.Members {
			p, err := w.svc.For(id).Profile(ctx)
			if errors.Is(err, domain.ErrNotFound) {
				w.logger.Warn("rostered profile missing", "identity_id", id, "side", side)
				skipped++
				continue
			}
			if err != nil {
				return synced, skipped, err
			}
			batch = append(batch, *p)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return synced, skipped, err
				}
			}
		}
	}
	return synced, skipped, flush()
}

// RestoreTeams copies the last team snapshots into the store for teams that
// have no live record. Used once on startup.
func (w *SyncWorker) RestoreTeams(ctx context.Context) error {
	snapshots, err := w.repo.GetTeamSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("loading team snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		w.logger.Debug("no team snapshots to restore")
		return nil
	}

	restored, err := w.svc.RestoreTeams(ctx, snapshots)
	if err != nil {
		return err
	}
	w.logger.Info("restored team records from snapshots", "count", restored)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
