package config

import (
	"time"

	"github.com/yndnr/brainsync/internal/storage"
)

// Default configuration values.
const (
	DefaultBackend    = storage.BackendMongo
	DefaultCollection = storage.DefaultCollection

	DefaultSaveInterval = 10 * time.Second
	DefaultMaxInflight  = 16

	DefaultMongoURL     = "mongodb://127.0.0.1:27017/nubot-brain"
	DefaultMongoTimeout = 10 * time.Second

	DefaultBadgerDir        = "/var/lib/brainsync/badger"
	DefaultBadgerGCInterval = "10m"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsAddr = "127.0.0.1:9464"
)

// Default returns the default configuration.
func Default() *BrainConfig {
	return &BrainConfig{
		Backend:    DefaultBackend,
		Collection: DefaultCollection,
		Save: SaveSection{
			Interval:    DefaultSaveInterval,
			MaxInflight: DefaultMaxInflight,
		},
		MongoDB: MongoDBSection{
			URL:     DefaultMongoURL,
			Timeout: DefaultMongoTimeout,
		},
		Badger: BadgerSection{
			Dir:        DefaultBadgerDir,
			GCInterval: DefaultBadgerGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
	}
}

// StorageConfig returns the gateway configuration.
func (c *BrainConfig) StorageConfig() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.Backend = c.Backend
	cfg.Collection = c.Collection
	cfg.Mongo.URL = c.MongoDB.URL
	cfg.Mongo.ConnectTimeout = c.MongoDB.Timeout
	cfg.Badger.Dir = c.Badger.Dir
	cfg.Badger.InMemory = c.Badger.InMemory
	if c.Badger.GCInterval != "" {
		cfg.Badger.GCInterval = c.Badger.GCInterval
	}
	return cfg
}
