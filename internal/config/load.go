package config

import (
	"fmt"

	"github.com/yndnr/brainsync/internal/infra/confloader"
)

// Legacy environment variables honored alongside the BRAIN_ prefix.
var envAliases = map[string]string{
	"MONGODB_URL": "mongodb.url",
}

// Load reads the configuration from defaults, the optional YAML file at path
// and the environment, then verifies it.
func Load(path string) (*BrainConfig, error) {
	cfg := Default()

	opts := []confloader.Option{confloader.WithConfigFile(path)}
	for name, key := range envAliases {
		opts = append(opts, confloader.WithEnvAlias(name, key))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
