package config

import "time"

// BrainConfig is the root configuration for brainctl.
type BrainConfig struct {
	Backend    string         `koanf:"backend"`
	Collection string         `koanf:"collection"`
	Save       SaveSection    `koanf:"save"`
	MongoDB    MongoDBSection `koanf:"mongodb"`
	Badger     BadgerSection  `koanf:"badger"`
	Log        LogSection     `koanf:"log"`
	Metrics    MetricsSection `koanf:"metrics"`
}

// SaveSection configures the sync engine.
type SaveSection struct {
	// Interval is the brain's auto-save period after load.
	Interval time.Duration `koanf:"interval"`

	// MaxInflight bounds concurrent writes per save cycle.
	MaxInflight int `koanf:"maxinflight"`
}

// MongoDBSection configures the MongoDB backend.
type MongoDBSection struct {
	// URL is the connection string; its path names the database.
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// BadgerSection configures the embedded Badger backend.
type BadgerSection struct {
	Dir        string `koanf:"dir"`
	InMemory   bool   `koanf:"inmemory"`
	GCInterval string `koanf:"gcinterval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address of /metrics. Empty disables it.
	Addr string `koanf:"addr"`
}
