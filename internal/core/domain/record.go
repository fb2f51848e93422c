package domain

import (
	"strings"
	"time"
)

// RecordType discriminates mirrored brain data from side-collection data.
type RecordType string

const (
	// TypePrivate records mirror the host's in-memory private data one-to-one.
	TypePrivate RecordType = "_private"

	// TypeStored records hold append-only arrays that are never loaded into memory.
	TypeStored RecordType = "_stored"
)

// String implements fmt.Stringer.
func (t RecordType) String() string {
	return string(t)
}

// Normalize returns TypePrivate for the empty type.
func (t RecordType) Normalize() RecordType {
	if t == "" {
		return TypePrivate
	}
	return t
}

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	switch t.Normalize() {
	case TypePrivate, TypeStored:
		return true
	default:
		return false
	}
}

// Record is a persisted brain entry, unique by (Key, Type).
type Record struct {
	Key       string     `json:"key"`
	Type      RecordType `json:"type"`
	Value     any        `json:"value"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NormalizeKey lowercases a record key. Keys are case-insensitive and every
// write and query goes through this function.
func NormalizeKey(key string) string {
	return strings.ToLower(key)
}

// Data is the host's brain data, keyed by record type and then by key.
type Data map[RecordType]map[string]any
