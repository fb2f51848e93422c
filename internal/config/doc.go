// Package config provides the brainsync configuration.
//
//   - spec.go: BrainConfig struct definition
//   - default.go: default configuration values
//   - verify.go: validation
//   - sanitize.go: log sanitization (hide credentials)
//   - load.go: loading through internal/infra/confloader
package config
