package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	RedisAddr         string
	RedisPassword     string
	RedisValueCap     int
	RemoteBaseURL     string
	TokenSecret       string
	AdminLogin        string
	AdminPasswordHash string
	SyncInterval      time.Duration
	WorkerPoolSize    int
	ReplayBatch       int
	MaxCodeAttempts   int
	ShutdownTimeout   time.Duration
}

const (
	defaultRunAddress      = ":8080"
	defaultRedisAddr       = "localhost:6379"
	defaultRedisValueCap   = 512 * 1024
	defaultTokenSecret     = "change-me-in-production"
	defaultAdminLogin      = "admin"
	defaultSyncInterval    = time.Minute
	defaultWorkerPoolSize  = 4
	defaultReplayBatch     = 16
	defaultMaxCodeAttempts = 5
	defaultShutdownTimeout = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		RedisAddr:         getString(lookup, "REDIS_ADDR", defaultRedisAddr),
		RedisPassword:     getString(lookup, "REDIS_PASSWORD", ""),
		RedisValueCap:     getInt(lookup, "REDIS_VALUE_CAP", defaultRedisValueCap),
		RemoteBaseURL:     getString(lookup, "REMOTE_STORE_ADDRESS", ""),
		TokenSecret:       getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		AdminLogin:        getString(lookup, "ADMIN_LOGIN", defaultAdminLogin),
		AdminPasswordHash: getString(lookup, "ADMIN_PASSWORD_HASH", ""),
		SyncInterval:      getDuration(lookup, "SYNC_INTERVAL", defaultSyncInterval),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ReplayBatch:       getInt(lookup, "REPLAY_BATCH_SIZE", defaultReplayBatch),
		MaxCodeAttempts:   getInt(lookup, "MAX_CODE_ATTEMPTS", defaultMaxCodeAttempts),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("storesync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		syncIntervalStr    = cfg.SyncInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN for the tier A cache")
	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "Remote store base URL")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the tier B cache")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing admin tokens")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent replay workers")
	fs.IntVar(&cfg.ReplayBatch, "replay-batch", cfg.ReplayBatch, "Maximum pending orders per replay batch")
	fs.IntVar(&cfg.MaxCodeAttempts, "max-code-attempts", cfg.MaxCodeAttempts, "Payment code attempts per checkout")
	fs.IntVar(&cfg.RedisValueCap, "redis-value-cap", cfg.RedisValueCap, "Tier B value size cap in bytes")
	fs.StringVar(&syncIntervalStr, "sync-interval", syncIntervalStr, "Interval between catalog reconciliation passes")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SyncInterval, err = time.ParseDuration(syncIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sync interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = string(content)
	}

	if hashFile, ok := lookup("ADMIN_PASSWORD_HASH_FILE"); ok && hashFile != "" {
		content, err := os.ReadFile(hashFile)
		if err != nil {
			return nil, fmt.Errorf("read admin password hash file: %w", err)
		}
		cfg.AdminPasswordHash = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ReplayBatch <= 0 {
		cfg.ReplayBatch = defaultReplayBatch
	}

	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = defaultMaxCodeAttempts
	}

	if cfg.RedisValueCap <= 0 {
		cfg.RedisValueCap = defaultRedisValueCap
	}

	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.RemoteBaseURL == "" {
		return nil, fmt.Errorf("remote store address must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
