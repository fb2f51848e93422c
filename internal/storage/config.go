package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend names.
const (
	BackendMongo  = "mongo"
	BackendBadger = "badger"
)

// DefaultCollection is the default record collection name.
const DefaultCollection = "brain"

// Config configures the document store gateway.
type Config struct {
	// Backend selects the implementation ("mongo" or "badger").
	// Default: "mongo"
	Backend string

	// Collection is the record collection name. For Badger it is used as the
	// key prefix, so several brains can share one database directory.
	// Default: "brain"
	Collection string

	Mongo  MongoConfig
	Badger BadgerConfig
}

// MongoConfig contains MongoDB connection settings.
type MongoConfig struct {
	// URL is the connection string. The path names the database.
	// Default: mongodb://127.0.0.1:27017/nubot-brain
	URL string

	// ConnectTimeout bounds the initial connect and ping.
	// Default: 10s
	ConnectTimeout time.Duration
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory runs Badger without touching disk.
	InMemory bool

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// SyncWrites enables fsync after each write.
	// Default: true (the brain has no other durability layer)
	SyncWrites bool

	// MaxPushRetries bounds retries of an append that lost a transaction conflict.
	// Default: 16
	MaxPushRetries int
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMongo,
		Collection: DefaultCollection,
		Mongo: MongoConfig{
			URL:            "mongodb://127.0.0.1:27017/nubot-brain",
			ConnectTimeout: 10 * time.Second,
		},
		Badger: DefaultBadgerConfig(""),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:            dir,
		GCInterval:     "10m",
		GCThreshold:    0.5,
		CacheSize:      64 << 20, // 64MB
		SyncWrites:     true,
		MaxPushRetries: 16,
	}
}

// Open connects the configured backend.
// Connection failures are reported as domain.ErrConnection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Gateway, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	switch cfg.Backend {
	case BackendMongo, "":
		return NewMongoStore(ctx, cfg, logger)
	case BackendBadger:
		return NewBadgerStore(cfg, logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
