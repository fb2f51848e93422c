package brainsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/internal/storage"
	"github.com/yndnr/brainsync/internal/telemetry/metric"
	"github.com/yndnr/brainsync/pkg/value"
)

// saveCycle is the outcome of the diff phase of one save.
type saveCycle struct {
	id         ulid.ULID
	start      time.Time
	recordType domain.RecordType
	skipped    int
	writes     []pendingWrite
	rejected   []storage.WriteResult
}

type pendingWrite struct {
	key     string
	payload any
}

// Save writes every key of data[recordType] whose value differs from the
// last persisted value, and returns once all writes have settled. Writes are
// ordered after those of earlier save cycles.
//
// An empty recordType means domain.TypePrivate. The side collection cannot be
// saved this way: TypeStored keys are rejected with domain.ErrInvalidType.
// Failed writes are logged and reported in the results; they never fail
// sibling writes.
func (a *Adapter) Save(ctx context.Context, data domain.Data, recordType domain.RecordType) []storage.WriteResult {
	cycle, prev, done := a.enqueue(data, recordType)
	if cycle == nil {
		return []storage.WriteResult{{Type: recordType.Normalize(), Err: domain.ErrClosed}}
	}
	if done == nil {
		return a.flush(ctx, cycle)
	}

	defer a.pending.Done()
	defer close(done)
	if prev != nil {
		<-prev
	}
	return a.flush(ctx, cycle)
}

// diff compares data against the snapshot cache and updates the cache for
// every changed key. The cache lock is held for the whole walk.
//
// Cache entries are keyed by the normalized key, like the gateway. Host keys
// that differ only in case would write the same record, so every spelling of
// such a key is rejected and the persisted value is left alone.
func (a *Adapter) diff(data domain.Data, recordType domain.RecordType) *saveCycle {
	recordType = recordType.Normalize()
	cycle := &saveCycle{
		id:         ulid.Make(),
		start:      time.Now(),
		recordType: recordType,
	}

	entries := data[recordType]
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if recordType != domain.TypePrivate {
		err := domain.ErrInvalidType.WithDetails("only " + string(domain.TypePrivate) + " data is saved from the brain")
		if !recordType.Valid() {
			err = domain.ErrInvalidType.WithDetails("unknown record type " + string(recordType))
		}
		if len(keys) == 0 {
			cycle.rejected = append(cycle.rejected, storage.WriteResult{Type: recordType, Err: err})
		}
		for _, k := range keys {
			cycle.rejected = append(cycle.rejected, storage.WriteResult{
				Key:  domain.NormalizeKey(k),
				Type: recordType,
				Err:  err,
			})
		}
		return cycle
	}

	spellings := make(map[string][]string, len(keys))
	for _, k := range keys {
		nk := domain.NormalizeKey(k)
		spellings[nk] = append(spellings[nk], k)
	}

	a.cache.mu.Lock()
	defer a.cache.mu.Unlock()

	for _, k := range keys {
		nk := domain.NormalizeKey(k)
		if same := spellings[nk]; len(same) > 1 {
			cycle.rejected = append(cycle.rejected, storage.WriteResult{
				Key:  nk,
				Type: recordType,
				Err: domain.ErrInvalidValue.WithDetails(
					fmt.Sprintf("key %q collides with %q ignoring case", k, same)),
			})
			continue
		}

		v := entries[k]
		if cached, ok := a.cache.entries[nk]; ok && value.Equal(cached, v) {
			cycle.skipped++
			continue
		}

		payload, err := value.Normalize(v)
		if err == nil {
			var snapshot any
			snapshot, err = value.Copy(payload)
			if err == nil {
				a.cache.entries[nk] = snapshot
			}
		}
		if err != nil {
			cycle.rejected = append(cycle.rejected, storage.WriteResult{
				Key:  nk,
				Type: recordType,
				Err:  domain.ErrInvalidValue.WithCause(err),
			})
			continue
		}

		cycle.writes = append(cycle.writes, pendingWrite{key: nk, payload: payload})
	}

	return cycle
}

// flush issues the writes of a cycle concurrently, bounded by
// MaxInflightWrites, and collects their results. A failed key is dropped from
// the cache unless a later cycle already replaced it.
func (a *Adapter) flush(ctx context.Context, cycle *saveCycle) []storage.WriteResult {
	logger := a.logger.With("cycle_id", cycle.id.String(), "type", string(cycle.recordType))

	results := make([]storage.WriteResult, len(cycle.writes), len(cycle.writes)+len(cycle.rejected))

	g := new(errgroup.Group)
	g.SetLimit(a.opts.MaxInflightWrites)

	for i, w := range cycle.writes {
		g.Go(func() error {
			a.metrics.InflightWrites.Inc()
			defer a.metrics.InflightWrites.Dec()

			logger.Debug("saving key", "key", w.key)

			res, err := a.gateway.Upsert(ctx, cycle.recordType, w.key, w.payload)
			if err != nil {
				a.cache.forget(w.key, w.payload)
				res = writeError(res, cycle.recordType, w.key, err)
				a.metrics.Writes.WithLabelValues(string(cycle.recordType), metric.OutcomeFailed).Inc()
				a.handle("save key", res.Err, "cycle_id", cycle.id.String(), "key", w.key)
			} else {
				a.metrics.Writes.WithLabelValues(string(cycle.recordType), writeOutcome(res)).Inc()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range cycle.rejected {
		a.metrics.Writes.WithLabelValues(string(cycle.recordType), metric.OutcomeFailed).Inc()
		a.handle("save key rejected", res.Err, "cycle_id", cycle.id.String(), "key", res.Key)
		results = append(results, res)
	}

	a.metrics.SaveCycles.Inc()
	a.metrics.KeysSkipped.Add(float64(cycle.skipped))
	a.metrics.SaveDuration.Observe(time.Since(cycle.start).Seconds())

	if len(cycle.writes) > 0 || len(cycle.rejected) > 0 {
		logger.Debug("save cycle done",
			"written", len(cycle.writes),
			"skipped", cycle.skipped,
			"rejected", len(cycle.rejected),
			"duration", time.Since(cycle.start))
	}
	return results
}

func writeOutcome(res storage.WriteResult) string {
	if res.Created {
		return metric.OutcomeCreated
	}
	return metric.OutcomeUpdated
}
