package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/yndnr/brainsync/internal/storage"
)

// Verify validates the configuration.
func Verify(cfg *BrainConfig) error {
	if cfg.Collection == "" {
		return errors.New("collection is required")
	}
	if err := verifySave(&cfg.Save); err != nil {
		return err
	}

	switch cfg.Backend {
	case storage.BackendMongo:
		return verifyMongoDB(&cfg.MongoDB)
	case storage.BackendBadger:
		return verifyBadger(&cfg.Badger)
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", storage.BackendMongo, storage.BackendBadger, cfg.Backend)
	}
}

func verifySave(cfg *SaveSection) error {
	if cfg.Interval <= 0 {
		return errors.New("save.interval must be positive")
	}
	if cfg.MaxInflight < 1 {
		return errors.New("save.maxinflight must be at least 1")
	}
	return nil
}

func verifyMongoDB(cfg *MongoDBSection) error {
	if cfg.URL == "" {
		return errors.New("mongodb.url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("mongodb.url: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("mongodb.url: unsupported scheme %q", u.Scheme)
	}
	if cfg.Timeout < 0 {
		return errors.New("mongodb.timeout must not be negative")
	}
	return nil
}

func verifyBadger(cfg *BadgerSection) error {
	if !cfg.InMemory && cfg.Dir == "" {
		return errors.New("badger.dir is required unless badger.inmemory is set")
	}
	if cfg.GCInterval != "" {
		if _, err := time.ParseDuration(cfg.GCInterval); err != nil {
			return fmt.Errorf("badger.gcinterval: %w", err)
		}
	}
	return nil
}
