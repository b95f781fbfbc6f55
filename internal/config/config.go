// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/chunk"
	"github.com/usestring/chunkgrep/internal/logging"
	"github.com/usestring/chunkgrep/internal/pool"
	"github.com/usestring/chunkgrep/internal/search"
)

// DefaultMCPMaxRecordsValue caps the records returned by one MCP tool call.
const DefaultMCPMaxRecordsValue = 200

// Config holds all configuration for chunkgrep.
type Config struct {
	Workers           int           // WORKERS, default 10
	QueueCapacity     int           // QUEUE_CAPACITY, default 50
	MaxChunkBytes     int64         // MAX_CHUNK_BYTES, default 300 MiB
	AdmissionPolicy   string        // ADMISSION_POLICY, default "caller-runs"
	BackoffMaxRetries int           // BACKOFF_MAX_RETRIES, default 2
	Backoff           time.Duration // BACKOFF_MS, default 5ms
	FileWorkers       int           // FILE_WORKERS, default 4

	// Result cache
	CacheEnabled    bool          // CACHE_ENABLED, default true
	CachePath       string        // CACHE_PATH, default <user cache dir>/chunkgrep/cache.json.zst
	CacheTTL        time.Duration // CACHE_TTL_MS, default 60000ms
	CacheMaxEntries int           // CACHE_MAX_ENTRIES, default 1024

	MCPMaxRecords int // MCP_MAX_RECORDS, default 200

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "warn"
	LogFormat     string // LOG_FORMAT, "text" or "json", default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Workers:           getEnvInt("WORKERS", pool.DefaultWorkers),
		QueueCapacity:     getEnvInt("QUEUE_CAPACITY", pool.DefaultQueueCapacity),
		MaxChunkBytes:     getEnvInt64("MAX_CHUNK_BYTES", chunk.DefaultMaxChunkBytes),
		AdmissionPolicy:   getEnvString("ADMISSION_POLICY", string(pool.KindCallerRuns)),
		BackoffMaxRetries: getEnvInt("BACKOFF_MAX_RETRIES", pool.DefaultMaxRetries),
		Backoff:           getEnvDurationMs("BACKOFF_MS", int(pool.DefaultBackoff/time.Millisecond)),
		FileWorkers:       getEnvInt("FILE_WORKERS", search.DefaultFileWorkers),

		CacheEnabled:    getEnvBool("CACHE_ENABLED", true),
		CachePath:       getEnvString("CACHE_PATH", defaultCachePath()),
		CacheTTL:        getEnvDurationMs("CACHE_TTL_MS", int(cache.DefaultTTL/time.Millisecond)),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries),

		MCPMaxRecords: getEnvInt("MCP_MAX_RECORDS", DefaultMCPMaxRecordsValue),

		LogLevel:      getEnvString("LOG_LEVEL", "warn"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Policy builds the configured admission policy.
func (c *Config) Policy() (pool.Policy, error) {
	return pool.ParsePolicy(c.AdmissionPolicy, c.BackoffMaxRetries, c.Backoff)
}

// Engine returns the search engine configuration.
func (c *Config) Engine() (search.Config, error) {
	policy, err := c.Policy()
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		Workers:       c.Workers,
		QueueCapacity: c.QueueCapacity,
		Policy:        policy,
		Plan:          chunk.PlanConfig{TargetChunks: c.Workers, MaxChunkBytes: c.MaxChunkBytes},
		FileWorkers:   c.FileWorkers,
	}, nil
}

// Logging returns the logging configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		FilePath:   c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

// defaultCachePath returns the snapshot location under the user cache directory,
// or "" (memory only) when there is none.
func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chunkgrep", "cache.json.zst")
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
