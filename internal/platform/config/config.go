// Package config holds the runtime settings of the beer server.
// Values come from Default(), then an optional YAML file, then BEER_* env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Engine     EngineConfig     `yaml:"engine" json:"engine"`
	Network    NetworkConfig    `yaml:"network" json:"network"`
	Tournament TournamentConfig `yaml:"tournament" json:"tournament"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" json:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"` // Empty allows any origin
	GinMode        string   `yaml:"gin_mode" json:"gin_mode" validate:"omitempty,oneof=debug release test"`

	// Websocket actions faster than this are dropped per connection.
	MaxActionsPerSecond int `yaml:"max_actions_per_second" json:"max_actions_per_second" validate:"gte=1"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type StorageConfig struct {
	Driver        string `yaml:"driver" json:"driver" validate:"oneof=sqlite postgres redis memory"`
	SQLitePath    string `yaml:"sqlite_path" json:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN   string `yaml:"postgres_dsn" json:"-" validate:"required_if=Driver postgres"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" validate:"gte=0"`

	// SlotKey is the single key the save snapshot lives under.
	SlotKey string `yaml:"slot_key" json:"slot_key" validate:"required"`

	// DBMaxOpenConns applies to the SQL drivers.
	DBMaxOpenConns int `yaml:"db_max_open_conns" json:"db_max_open_conns" validate:"gte=1"`

	// EventHistory is how many recent events the in-memory log keeps.
	EventHistory int `yaml:"event_history" json:"event_history" validate:"gte=1"`
}

type EngineConfig struct {
	TickInterval     time.Duration `yaml:"tick_interval" json:"tick_interval" validate:"gte=1ms"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" json:"autosave_interval" validate:"gte=1ms"`
	SaveTimeout      time.Duration `yaml:"save_timeout" json:"save_timeout" validate:"gte=1ms"`
}

type NetworkConfig struct {
	ClientSendBuffer  int           `yaml:"client_send_buffer" json:"client_send_buffer" validate:"gte=1"`
	BroadcastBuffer   int           `yaml:"broadcast_buffer" json:"broadcast_buffer" validate:"gte=1"`
	StatePushInterval time.Duration `yaml:"state_push_interval" json:"state_push_interval" validate:"gte=1ms"`
	EventPollInterval time.Duration `yaml:"event_poll_interval" json:"event_poll_interval" validate:"gte=1ms"`
}

type TournamentConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	StartingAttempts int  `yaml:"starting_attempts" json:"starting_attempts" validate:"gte=0"`
	LeaderboardSize  int  `yaml:"leaderboard_size" json:"leaderboard_size" validate:"gte=1,lte=100"`

	// AdminIDs may grant attempts, reset players and read the totals.
	AdminIDs []int64 `yaml:"admin_ids" json:"admin_ids"`
}

// Default returns sensible defaults for a single-player deployment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:                ":8080",
			GinMode:             "release",
			MaxActionsPerSecond: 20,
		},
		Storage: StorageConfig{
			Driver:         DriverSQLite,
			SQLitePath:     "data/beer.db",
			RedisAddr:      "localhost:6379",
			SlotKey:        "beer-clicker-save",
			DBMaxOpenConns: 4,
			EventHistory:   512,
		},
		Engine: EngineConfig{
			TickInterval:     1 * time.Second,
			AutosaveInterval: 2 * time.Second,
			SaveTimeout:      3 * time.Second,
		},
		Network: NetworkConfig{
			ClientSendBuffer:  256,
			BroadcastBuffer:   64,
			StatePushInterval: 1 * time.Second,
			EventPollInterval: 200 * time.Millisecond,
		},
		Tournament: TournamentConfig{
			Enabled:          true,
			StartingAttempts: 3,
			LeaderboardSize:  10,
		},
	}
}

// LowResource returns minimal settings for development and tests.
func LowResource() Config {
	cfg := Default()
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.DBMaxOpenConns = 1
	cfg.Storage.EventHistory = 64
	cfg.Network.ClientSendBuffer = 8
	cfg.Network.BroadcastBuffer = 8
	cfg.Server.MaxActionsPerSecond = 10
	return cfg
}

// Load builds a Config from defaults, the YAML file at path (if non-empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
