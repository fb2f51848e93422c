package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/brainsync/internal/core/domain"
)

// ErrRecordNotFound is returned by FindOne when no record matches.
var ErrRecordNotFound = errors.New("record not found")

// Gateway is the document store capability used by the sync engine.
//
// Implementations must be safe for concurrent use. Push must be atomic with
// respect to other Push calls on the same (type, key).
type Gateway interface {
	// FindByType returns every record of the given type.
	FindByType(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error)

	// FindOne returns the record for (recordType, key).
	// Returns ErrRecordNotFound if it doesn't exist.
	FindOne(ctx context.Context, recordType domain.RecordType, key string) (*domain.Record, error)

	// Upsert sets the value of (recordType, key), creating the record if absent.
	Upsert(ctx context.Context, recordType domain.RecordType, key string, value any) (WriteResult, error)

	// Push appends item to the array value of (recordType, key), creating the
	// record with a single-element array if absent.
	Push(ctx context.Context, recordType domain.RecordType, key string, item any) (WriteResult, error)

	// FindElement returns the first element of the array value of
	// (recordType, key) whose fields include every predicate field.
	// ok is false when the record or a matching element doesn't exist.
	FindElement(ctx context.Context, recordType domain.RecordType, key string, predicate map[string]any) (elem any, ok bool, err error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// WriteResult describes the outcome of a single upsert or append.
type WriteResult struct {
	Key       string
	Type      domain.RecordType
	Created   bool
	UpdatedAt time.Time
	Err       error
}

var (
	_ Gateway = (*MongoStore)(nil)
	_ Gateway = (*BadgerStore)(nil)
)
