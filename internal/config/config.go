// Package config holds the tunable knobs of the cache-and-sync core
// and the on-disk layout of the two SQLite databases, bound
// through viper so every knob can be set via AZDEVCACHE_* env vars or a
// config file without touching code.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved set of knobs, all independently overridable.
// WorkItemBatchSize and DefinitionUpdateThreshold are loaded but not
// read by the running core: the updaters use their own constants
// (updater.WorkItemBatchSize, updater.DefinitionStaleness).
type Config struct {
	PeriodicInterval          time.Duration
	RefreshCooldown           time.Duration
	WorkItemBatchSize         int
	BuildRetention            time.Duration
	QueryWorkItemTTL          time.Duration
	MyWorkItemsQueryTTL       time.Duration
	DefinitionUpdateThreshold time.Duration

	DataDir  string
	LogPath  string
	LogLevel string
}

// CacheDBPath returns the path to the volatile cache database.
func (c Config) CacheDBPath() string { return filepath.Join(c.DataDir, "AzureData.db") }

// PersistentDBPath returns the path to the persistent definitions database.
func (c Config) PersistentDBPath() string { return filepath.Join(c.DataDir, "PersistentAzureData.db") }

// Load resolves configuration from defaults, an optional config file, and
// AZDEVCACHE_-prefixed environment variables, in that order of increasing
// priority.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AZDEVCACHE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaultDataDir := defaultDataDir()

	v.SetDefault("periodic_interval", 10*time.Minute)
	v.SetDefault("refresh_cooldown", 3*time.Minute)
	v.SetDefault("work_item_batch_size", 200)
	v.SetDefault("build_retention", 7*24*time.Hour)
	v.SetDefault("query_work_item_ttl", 7*24*time.Hour)
	v.SetDefault("my_work_items_query_ttl", 2*time.Minute)
	v.SetDefault("definition_update_threshold", 4*time.Hour)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_path", "")
	v.SetDefault("log_level", "info")

	v.SetConfigName("azdevcache")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultDataDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return Config{
		PeriodicInterval:          v.GetDuration("periodic_interval"),
		RefreshCooldown:           v.GetDuration("refresh_cooldown"),
		WorkItemBatchSize:         v.GetInt("work_item_batch_size"),
		BuildRetention:            v.GetDuration("build_retention"),
		QueryWorkItemTTL:          v.GetDuration("query_work_item_ttl"),
		MyWorkItemsQueryTTL:       v.GetDuration("my_work_items_query_ttl"),
		DefinitionUpdateThreshold: v.GetDuration("definition_update_threshold"),
		DataDir:                   v.GetString("data_dir"),
		LogPath:                   v.GetString("log_path"),
		LogLevel:                  v.GetString("log_level"),
	}, nil
}

// Default returns this-default configuration rooted at the platform
// user cache directory, without touching the filesystem or environment.
func Default() Config {
	d := defaultDataDir()
	return Config{
		PeriodicInterval:          10 * time.Minute,
		RefreshCooldown:           3 * time.Minute,
		WorkItemBatchSize:         200,
		BuildRetention:            7 * 24 * time.Hour,
		QueryWorkItemTTL:          7 * 24 * time.Hour,
		MyWorkItemsQueryTTL:       2 * time.Minute,
		DefinitionUpdateThreshold: 4 * time.Hour,
		DataDir:  d,
		LogLevel: "info",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "azdevcache")
	}
	return filepath.Join(".", ".azdevcache")
}
