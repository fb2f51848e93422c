// Package buildinfo exposes build-time version information.
//
//	go build -ldflags "-X github.com/yndnr/brainsync/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
