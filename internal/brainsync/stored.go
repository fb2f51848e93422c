package brainsync

import (
	"context"
	"errors"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/internal/storage"
	"github.com/yndnr/brainsync/internal/telemetry/metric"
	"github.com/yndnr/brainsync/pkg/value"
)

// Store appends item to the side-collection array at key, creating the
// record when absent. Stored data is never loaded into the brain.
//
// Errors are logged and returned both in the result and as err.
func (a *Adapter) Store(ctx context.Context, key string, item any) (storage.WriteResult, error) {
	if err := a.checkOpen(); err != nil {
		return storage.WriteResult{Key: domain.NormalizeKey(key), Type: domain.TypeStored, Err: err}, err
	}

	a.logger.Debug("storing item", "key", key)

	payload, err := value.Normalize(item)
	if err != nil {
		res := storage.WriteResult{
			Key:  domain.NormalizeKey(key),
			Type: domain.TypeStored,
			Err:  domain.ErrInvalidValue.WithCause(err),
		}
		a.metrics.Writes.WithLabelValues(string(domain.TypeStored), metric.OutcomeFailed).Inc()
		a.handle("store item", res.Err, "key", key)
		return res, res.Err
	}

	a.metrics.InflightWrites.Inc()
	res, err := a.gateway.Push(ctx, domain.TypeStored, key, payload)
	a.metrics.InflightWrites.Dec()

	if err != nil {
		res = writeError(res, domain.TypeStored, key, err)
		a.metrics.Writes.WithLabelValues(string(domain.TypeStored), metric.OutcomeFailed).Inc()
		a.handle("store item", res.Err, "key", key)
		return res, res.Err
	}

	a.metrics.Writes.WithLabelValues(string(domain.TypeStored), writeOutcome(res)).Inc()
	return res, nil
}

// Retrieve returns the whole side-collection array at key. ok is false when
// no record exists, which is distinct from an existing empty array.
func (a *Adapter) Retrieve(ctx context.Context, key string) (items []any, ok bool, err error) {
	if err := a.checkOpen(); err != nil {
		return nil, false, err
	}

	a.logger.Debug("retrieving items", "key", key)

	rec, err := a.gateway.FindOne(ctx, domain.TypeStored, key)
	if errors.Is(err, storage.ErrRecordNotFound) {
		a.metrics.Lookups.WithLabelValues("retrieve", metric.ResultMiss).Inc()
		return nil, false, nil
	}
	if err != nil {
		err = queryError(err)
		a.metrics.Lookups.WithLabelValues("retrieve", metric.ResultError).Inc()
		a.handle("retrieve items", err, "key", key)
		return nil, false, err
	}

	a.metrics.Lookups.WithLabelValues("retrieve", metric.ResultHit).Inc()

	switch v := rec.Value.(type) {
	case []any:
		return v, true, nil
	case nil:
		return []any{}, true, nil
	default:
		return []any{v}, true, nil
	}
}

// Find returns the first element of the side-collection array at key whose
// fields include every field of predicate with an equal value. ok is false
// when the record or a matching element doesn't exist.
func (a *Adapter) Find(ctx context.Context, key string, predicate map[string]any) (elem any, ok bool, err error) {
	if err := a.checkOpen(); err != nil {
		return nil, false, err
	}

	a.logger.Debug("searching items", "key", key, "predicate", predicate)

	normalized, err := value.Normalize(predicate)
	if err != nil {
		err = domain.ErrInvalidValue.WithCause(err)
		a.handle("find item", err, "key", key)
		return nil, false, err
	}
	predicate, _ = normalized.(map[string]any)
	if predicate == nil {
		predicate = map[string]any{}
	}

	elem, ok, err = a.gateway.FindElement(ctx, domain.TypeStored, key, predicate)
	if err != nil {
		err = queryError(err)
		a.metrics.Lookups.WithLabelValues("find", metric.ResultError).Inc()
		a.handle("find item", err, "key", key)
		return nil, false, err
	}

	if ok {
		a.metrics.Lookups.WithLabelValues("find", metric.ResultHit).Inc()
	} else {
		a.metrics.Lookups.WithLabelValues("find", metric.ResultMiss).Inc()
	}
	return elem, ok, nil
}

func queryError(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrQuery.WithCause(err)
}
