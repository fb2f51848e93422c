package config

import "net/url"

// Sanitize returns a copy of the config with credentials masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *BrainConfig) *BrainConfig {
	sanitized := *cfg

	if u, err := url.Parse(sanitized.MongoDB.URL); err == nil && u.User != nil {
		sanitized.MongoDB.URL = u.Redacted()
	}

	return &sanitized
}
