// Package metric provides Prometheus metrics for brainsync.
//
// Metrics include:
//
//   - Save cycle counts, durations and per-key write outcomes
//   - Skipped (unchanged) keys
//   - Load duration and loaded record count
//   - Side-collection appends and lookups
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
