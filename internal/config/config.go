package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SEASON_"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	Kafka    KafkaConfig    `yaml:"kafka" envPrefix:"KAFKA_"`
	Sync     SyncConfig     `yaml:"sync" envPrefix:"SYNC_"`
	Season   SeasonConfig   `yaml:"season"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Database        string        `yaml:"database" env:"DATABASE"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxConnections  int           `yaml:"max_connections" env:"MAX_CONNECTIONS"`
	MinConnections  int           `yaml:"min_connections" env:"MIN_CONNECTIONS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"MAX_CONN_IDLE_TIME"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic         string        `yaml:"topic" env:"TOPIC"`
	GroupID       string        `yaml:"group_id" env:"GROUP_ID"`
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	BatchSize     int           `yaml:"batch_size" env:"BATCH_SIZE"`
	BatchTimeout  time.Duration `yaml:"batch_timeout" env:"BATCH_TIMEOUT"`
	RetryAttempts int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// SyncConfig holds snapshot worker configuration
type SyncConfig struct {
	Interval  time.Duration `yaml:"interval" env:"INTERVAL"`
	BatchSize int           `yaml:"batch_size" env:"BATCH_SIZE"`
	Enabled   bool          `yaml:"enabled" env:"ENABLED"`
}

// SeasonConfig holds every tunable of the progression rules
type SeasonConfig struct {
	StorePrefix       string          `yaml:"store_prefix" env:"STORE_PREFIX"`
	StoreMaxRetries   int             `yaml:"store_max_retries" env:"STORE_MAX_RETRIES"`
	Admins            []string        `yaml:"admins" env:"ADMINS" envSeparator:","`
	Profile           ProgressionRule `yaml:"profile" envPrefix:"PROFILE_"`
	Team              ProgressionRule `yaml:"team" envPrefix:"TEAM_"`
	Crafting          CraftingConfig  `yaml:"crafting" envPrefix:"CRAFTING_"`
	Pass              PassConfig      `yaml:"pass" envPrefix:"PASS_"`
	Rewards           RewardsConfig   `yaml:"rewards"`
	TeamBonusCooldown time.Duration   `yaml:"team_bonus_cooldown" env:"TEAM_BONUS_COOLDOWN"`
	AwardUndoWindow   time.Duration   `yaml:"award_undo_window" env:"AWARD_UNDO_WINDOW"`
}

// ProgressionRule is the first ceiling and per-level growth of a level track
type ProgressionRule struct {
	StartCeiling int64 `yaml:"start_ceiling" env:"START_CEILING"`
	Growth       int64 `yaml:"growth" env:"GROWTH"`
}

// CraftingConfig holds the daily crafting limits
type CraftingConfig struct {
	BaseLimit int           `yaml:"base_limit" env:"BASE_LIMIT"`
	PassLimit int           `yaml:"pass_limit" env:"PASS_LIMIT"`
	UTCOffset time.Duration `yaml:"utc_offset" env:"UTC_OFFSET"`
}

// PassConfig holds magic pass durations per code kind
type PassConfig struct {
	OneDay   time.Duration `yaml:"one_day" env:"ONE_DAY"`
	SevenDay time.Duration `yaml:"seven_day" env:"SEVEN_DAY"`
	Event    time.Duration `yaml:"event" env:"EVENT"`
}

// Reward is an experience/coins/team experience grant
type Reward struct {
	XP     int64 `yaml:"xp"`
	Coins  int64 `yaml:"coins"`
	TeamXP int64 `yaml:"team_xp"`
}

// RewardsConfig holds the fixed grants of each activity
type RewardsConfig struct {
	Craft       Reward            `yaml:"craft"`
	TeamBonus   Reward            `yaml:"team_bonus"`
	Submissions map[string]Reward `yaml:"submissions"`
}

// Load reads configuration from a YAML file, then applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// ApplyEnv overrides fields from SEASON_* environment variables
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing env overrides: %w", err)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 20
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 2
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "season-rewards"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "season-reward-consumer"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 1 * time.Second
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.RetryDelay == 0 {
		c.Kafka.RetryDelay = 1 * time.Second
	}

	// Sync defaults
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 5 * time.Minute
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 500
	}

	c.Season.applyDefaults()
}

// applyDefaults fills the season tunables with the event's values
func (s *SeasonConfig) applyDefaults() {
	if s.StorePrefix == "" {
		s.StorePrefix = "winterMagic2025"
	}
	if s.StoreMaxRetries == 0 {
		s.StoreMaxRetries = 64
	}
	if s.Profile.StartCeiling == 0 {
		s.Profile.StartCeiling = 600
	}
	if s.Profile.Growth == 0 {
		s.Profile.Growth = 1800
	}
	if s.Team.StartCeiling == 0 {
		s.Team.StartCeiling = 300
	}
	if s.Team.Growth == 0 {
		s.Team.Growth = 200
	}
	if s.Crafting.BaseLimit == 0 {
		s.Crafting.BaseLimit = 1
	}
	if s.Crafting.PassLimit == 0 {
		s.Crafting.PassLimit = 4
	}
	if s.Crafting.UTCOffset == 0 {
		s.Crafting.UTCOffset = 6*time.Hour + 30*time.Minute
	}
	if s.Pass.OneDay == 0 {
		s.Pass.OneDay = 24 * time.Hour
	}
	if s.Pass.SevenDay == 0 {
		s.Pass.SevenDay = 7 * 24 * time.Hour
	}
	if s.Pass.Event == 0 {
		s.Pass.Event = 30 * 24 * time.Hour
	}
	if s.Rewards.Craft == (Reward{}) {
		s.Rewards.Craft = Reward{XP: 30, Coins: 15, TeamXP: 30}
	}
	if s.Rewards.TeamBonus == (Reward{}) {
		s.Rewards.TeamBonus = Reward{XP: 150, Coins: 10, TeamXP: 20}
	}
	if s.Rewards.Submissions == nil {
		s.Rewards.Submissions = map[string]Reward{}
	}
	defaults := map[string]Reward{
		"sentence":  {XP: 5, Coins: 2},
		"paragraph": {XP: 18, Coins: 8},
		"essay":     {XP: 50, Coins: 25},
	}
	for kind, r := range defaults {
		if _, ok := s.Rewards.Submissions[kind]; !ok {
			s.Rewards.Submissions[kind] = r
		}
	}
	if s.TeamBonusCooldown == 0 {
		s.TeamBonusCooldown = 24 * time.Hour
	}
	if s.AwardUndoWindow == 0 {
		s.AwardUndoWindow = 10 * time.Minute
	}
}

// IsAdmin reports whether identityID may use admin endpoints
func (s *SeasonConfig) IsAdmin(identityID string) bool {
	for _, a := range s.Admins {
		if a != "" && a == identityID {
			return true
		}
	}
	return false
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Sync.Enabled = true
	return cfg
}
