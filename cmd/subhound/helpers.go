package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/subhound/subhound/internal/ai"
	"github.com/subhound/subhound/internal/engine"
	"github.com/subhound/subhound/internal/storage"
)

// openStorage opens the configured database.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "subhound", "subhound.db")
	}

	return storage.NewSQLiteStorage(dbPath)
}

// engineConfig builds the detection config from viper with defaults.
func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if v := viper.GetInt("detection.min_occurrences"); v > 0 {
		cfg.MinOccurrences = v
	}
	if v := viper.GetFloat64("detection.interval_tolerance"); v > 0 {
		cfg.IntervalTolerance = v
	}
	if v := viper.GetFloat64("detection.increase_threshold"); v > 0 {
		cfg.IncreaseThreshold = v
	}
	if v := viper.GetInt("detection.zombie_after_days"); v > 0 {
		cfg.ZombieAfter = time.Duration(v) * 24 * time.Hour
	}
	if v := viper.GetInt("detection.max_concurrent"); v > 0 {
		cfg.MaxConcurrent = v
	}

	return cfg
}

// engineOptions wires the optional AI collaborators from configuration.
// Absence of configuration is not an error: the engine degrades to its
// rule tier.
func engineOptions() ([]engine.Option, error) {
	var opts []engine.Option

	if !viper.GetBool("ai.enabled") {
		return opts, nil
	}

	client, err := ai.NewClient(ai.Config{
		BaseURL:     viper.GetString("ai.base_url"),
		APIKey:      viper.GetString("ai.api_key"),
		Model:       viper.GetString("ai.model"),
		RateLimit:   viper.GetInt("ai.rate_limit"),
		Temperature: viper.GetFloat64("ai.temperature"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	opts = append(opts, engine.WithAIClient(client))

	if viper.GetBool("ai.orchestrator.enabled") {
		orchCfg := ai.DefaultOrchestratorConfig()
		if v := viper.GetInt("ai.orchestrator.max_tool_calls"); v > 0 {
			orchCfg.MaxToolCalls = v
		}
		if v := viper.GetInt("ai.orchestrator.timeout_seconds"); v > 0 {
			orchCfg.Timeout = time.Duration(v) * time.Second
		}
		opts = append(opts, engine.WithOrchestrator(ai.NewOrchestrator(client, orchCfg)))
	}

	return opts, nil
}
