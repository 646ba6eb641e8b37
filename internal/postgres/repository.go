package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
)

// Repository provides PostgreSQL-based durable storage for the season ledger
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	return connect(poolConfig, logger)
}

// Open connects with a plain DSN
func Open(dsn string, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	return connect(poolConfig, logger)
}

func connect(poolConfig *pgxpool.Config, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks connectivity for readiness probes
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
			id VARCHAR(64) PRIMARY KEY,
			item_a VARCHAR(255) NOT NULL,
			item_b VARCHAR(255) NOT NULL,
			result VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id VARCHAR(64) PRIMARY KEY,
			identity_id VARCHAR(128) NOT NULL,
			display_name VARCHAR(255),
			type VARCHAR(20) NOT NULL,
			body TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS awards (
			id VARCHAR(64) PRIMARY KEY,
			admin_id VARCHAR(128) NOT NULL,
			identity_id VARCHAR(128) NOT NULL,
			submission_id VARCHAR(64) NOT NULL,
			experience BIGINT NOT NULL,
			currency BIGINT NOT NULL,
			comment TEXT,
			inverse JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			undo_deadline TIMESTAMPTZ NOT NULL,
			undone_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS reward_events (
			id BIGSERIAL PRIMARY KEY,
			identity_id VARCHAR(128) NOT NULL,
			source VARCHAR(64),
			experience BIGINT NOT NULL,
			currency BIGINT NOT NULL,
			team_xp BIGINT NOT NULL,
			levels_gained INT NOT NULL,
			currency_granted BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_snapshots (
			side VARCHAR(16) PRIMARY KEY,
			level INT NOT NULL,
			experience BIGINT NOT NULL,
			experience_ceiling BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profile_snapshots (
			identity_id VARCHAR(128) PRIMARY KEY,
			team VARCHAR(16),
			level INT NOT NULL,
			experience BIGINT NOT NULL,
			currency BIGINT NOT NULL,
			profile JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_identity ON submissions(identity_id, submitted_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_awards_identity ON awards(identity_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_events_identity ON reward_events(identity_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ListRecipes returns every recipe, oldest first
func (r *Repository) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	query := `
		SELECT id, item_a, item_b, result, created_at
		FROM recipes
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	defer rows.Close()

	var recipes []domain.Recipe
	for rows.Next() {
		var rec domain.Recipe
		if err := rows.Scan(&rec.ID, &rec.ItemA, &rec.ItemB, &rec.Result, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// AddRecipe inserts a recipe
func (r *Repository) AddRecipe(ctx context.Context, recipe domain.Recipe) error {
	query := `
		INSERT INTO recipes (id, item_a, item_b, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, recipe.ID, recipe.ItemA, recipe.ItemB, recipe.Result, recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding recipe: %w", err)
	}
	return nil
}

// DeleteRecipe removes a recipe by ID
func (r *Repository) DeleteRecipe(ctx context.Context, recipeID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, recipeID)
	if err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordSubmission archives a writing submission
func (r *Repository) RecordSubmission(ctx context.Context, sub domain.Submission) error {
	query := `
		INSERT INTO submissions (id, identity_id, display_name, type, body, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.IdentityID,
		sub.DisplayName,
		string(sub.Type),
		sub.Text,
		sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}
	return nil
}

// RecordAward archives an award with its inverse
func (r *Repository) RecordAward(ctx context.Context, award domain.Award) error {
	inverse, err := json.Marshal(award.Inverse)
	if err != nil {
		return fmt.Errorf("marshaling inverse: %w", err)
	}

	query := `
		INSERT INTO awards (id, admin_id, identity_id, submission_id, experience, currency,
			comment, inverse, created_at, undo_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		award.ID,
		award.AdminID,
		award.IdentityID,
		award.SubmissionID,
		award.Points.Experience,
		award.Inverse.RevokeCurrency,
		award.Comment,
		inverse,
		award.CreatedAt,
		award.UndoDeadline,
	)
	if err != nil {
		return fmt.Errorf("recording award: %w", err)
	}
	return nil
}

// RecordAwardUndo marks an archived award as undone
func (r *Repository) RecordAwardUndo(ctx context.Context, awardID string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE awards SET undone_at = $2 WHERE id = $1`, awardID, at)
	if err != nil {
		return fmt.Errorf("recording award undo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordRewardEvent records an applied reward event for auditing
func (r *Repository) RecordRewardEvent(ctx context.Context, event domain.RewardEvent, result domain.RewardResult) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO reward_events (identity_id, source, experience, currency, team_xp,
			levels_gained, currency_granted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		event.IdentityID,
		event.Source,
		event.Experience,
		event.Currency,
		event.TeamXP,
		result.LevelsGained,
		result.CurrencyGranted,
		ts,
	)
	if err != nil {
		return fmt.Errorf("recording reward event: %w", err)
	}
	return nil
}

// UpsertTeamSnapshots stores the latest team records
func (r *Repository) UpsertTeamSnapshots(ctx context.Context, teams []domain.TeamRecord) error {
	if len(teams) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO team_snapshots (side, level, experience, experience_ceiling, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (side)
		DO UPDATE SET level = $2, experience = $3, experience_ceiling = $4, updated_at = $5
	`
	now := time.Now()

	for _, t := range teams {
		batch.Queue(query, string(t.Side), t.Level, t.Experience, t.Ceiling, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range teams {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upserting team snapshots: %w", err)
		}
	}
	return nil
}

// GetTeamSnapshots returns every stored team record
func (r *Repository) GetTeamSnapshots(ctx context.Context) ([]domain.TeamRecord, error) {
	query := `
		SELECT side, level, experience, experience_ceiling
		FROM team_snapshots
		ORDER BY side DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting team snapshots: %w", err)
	}
	defer rows.Close()

	var teams []domain.TeamRecord
	for rows.Next() {
		var (
			t    domain.TeamRecord
			side string
		)
		if err := rows.Scan(&side, &t.Level, &t.Experience, &t.Ceiling); err != nil {
			return nil, fmt.Errorf("scanning team snapshot: %w", err)
		}
		t.Side = domain.Side(side)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// UpsertProfileSnapshots stores the latest profiles
func (r *Repository) UpsertProfileSnapshots(ctx context.Context, profiles []domain.UserProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO profile_snapshots (identity_id, team, level, experience, currency, profile, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id)
		DO UPDATE SET team = $2, level = $3, experience = $4, currency = $5, profile = $6, updated_at = $7
	`
	now := time.Now()

	for _, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling profile %s: %w", p.IdentityID, err)
		}
		batch.Queue(query, p.IdentityID, string(p.Team), p.Level, p.Experience, p.Currency, data, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range profiles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upserting profile snapshots: %w", err)
		}
	}
	return nil
}
