// Package logger builds the structured loggers used by brainsync.
//
//   - logger.go: slog handler construction and dynamic level control
//   - redact.go: masking of credentials in connection strings and secret fields
//
// Storage and sync components take the *slog.Logger built here.
package logger
