package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg from BEER_* environment variables.
// Unset variables leave the current value alone.
func applyEnv(cfg *Config) error {
	setString("BEER_HTTP_ADDR", &cfg.Server.Addr)
	setString("BEER_GIN_MODE", &cfg.Server.GinMode)
	if v := os.Getenv("BEER_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	setString("BEER_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("BEER_SQLITE_PATH", &cfg.Storage.SQLitePath)
	setString("BEER_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	setString("BEER_REDIS_ADDR", &cfg.Storage.RedisAddr)
	setString("BEER_REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	setString("BEER_SLOT_KEY", &cfg.Storage.SlotKey)
	if v := os.Getenv("BEER_TOURNAMENT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BEER_TOURNAMENT_ENABLED: %w", err)
		}
		cfg.Tournament.Enabled = b
	}
	if v := os.Getenv("BEER_TOURNAMENT_ADMINS"); v != "" {
		admins, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("invalid BEER_TOURNAMENT_ADMINS: %w", err)
		}
		cfg.Tournament.AdminIDs = admins
	}

	ints := map[string]*int{
		"BEER_REDIS_DB":               &cfg.Storage.RedisDB,
		"BEER_EVENT_HISTORY":          &cfg.Storage.EventHistory,
		"BEER_MAX_ACTIONS_PER_SECOND": &cfg.Server.MaxActionsPerSecond,
		"BEER_CLIENT_SEND_BUFFER":     &cfg.Network.ClientSendBuffer,
		"BEER_STARTING_ATTEMPTS":      &cfg.Tournament.StartingAttempts,
		"BEER_LEADERBOARD_SIZE":       &cfg.Tournament.LeaderboardSize,
	}
	for key, dst := range ints {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}

	durations := map[string]*time.Duration{
		"BEER_TICK_INTERVAL":       &cfg.Engine.TickInterval,
		"BEER_AUTOSAVE_INTERVAL":   &cfg.Engine.AutosaveInterval,
		"BEER_STATE_PUSH_INTERVAL": &cfg.Network.StatePushInterval,
	}
	for key, dst := range durations {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(v string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(v) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
