package brainsync

import (
	"context"
	"time"

	"github.com/yndnr/brainsync/internal/core/domain"
)

// Load reads every private record and merges it into the host.
//
// Auto-save is disabled for the duration of the load so the merge cannot
// trigger a save cycle. If the query fails the error is returned wrapped in
// domain.ErrQuery and auto-save is left disabled.
func (a *Adapter) Load(ctx context.Context) error {
	if err := a.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	a.host.SetAutoSave(false)

	records, err := a.gateway.FindByType(ctx, domain.TypePrivate)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrQuery.Code) {
			err = domain.ErrQuery.WithCause(err)
		}
		a.handle("load private records", err)
		return err
	}

	private := make(map[string]any, len(records))
	for _, rec := range records {
		private[rec.Key] = rec.Value
	}

	if err := a.cache.reset(private); err != nil {
		err = domain.ErrInvalidValue.WithCause(err)
		a.handle("snapshot loaded records", err)
		return err
	}

	a.host.MergeData(domain.Data{domain.TypePrivate: private})
	a.host.ResetSaveInterval(a.opts.SaveInterval)
	a.host.SetAutoSave(true)

	elapsed := time.Since(start)
	a.metrics.LoadDuration.Set(elapsed.Seconds())
	a.metrics.LoadedRecords.Set(float64(len(records)))

	a.logger.Info("private data loaded",
		"records", len(records),
		"save_interval", a.opts.SaveInterval,
		"duration", elapsed)
	return nil
}
