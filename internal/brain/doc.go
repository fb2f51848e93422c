// Package brain implements an in-memory bot brain.
//
// A Brain holds per-type key/value data, emits save events on an auto-save
// ticker or on demand, and emits a single close event on shutdown. It is the
// host that internal/brainsync persists.
package brain
