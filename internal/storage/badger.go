package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/pkg/value"
)

// BadgerStore implements Gateway on an embedded Badger database.
//
// Records are JSON documents stored under "<collection>/<type>/<key>".
// Badger holds an exclusive lock on its directory, so writes are serialized
// in-process; each write is additionally a read-modify-write in a
// conflict-detecting transaction, retried on ErrConflict.
type BadgerStore struct {
	db         *badger.DB
	cfg        BadgerConfig
	collection string
	logger     *slog.Logger
	writeMu    sync.Mutex

	closed           atomic.Bool
	lastGCTime       atomic.Int64 // Unix milliseconds
	gcBytesReclaimed atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh      chan struct{}
	doneCh      chan struct{}
	metricsDone chan struct{}
}

// metricsUpdateInterval is how often the size gauges are refreshed.
var metricsUpdateInterval = 15 * time.Second

// NewBadgerStore opens a Badger-backed gateway.
func NewBadgerStore(cfg Config, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bcfg := cfg.Badger
	if !bcfg.InMemory && bcfg.Dir == "" {
		return nil, domain.ErrConnection.WithDetails("badger: dir is required")
	}
	if bcfg.MaxPushRetries <= 0 {
		bcfg.MaxPushRetries = DefaultBadgerConfig("").MaxPushRetries
	}

	opts := badger.DefaultOptions(bcfg.Dir)
	if bcfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	if bcfg.CacheSize > 0 {
		opts.BlockCacheSize = bcfg.CacheSize
	}
	opts.SyncWrites = bcfg.SyncWrites && !bcfg.InMemory
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrConnection.WithCause(fmt.Errorf("badger: open db: %w", err))
	}

	s := &BadgerStore{
		db:         db,
		cfg:        bcfg,
		collection: cfg.Collection,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if bcfg.InMemory {
		close(s.doneCh)
	} else {
		go s.gcLoop()
	}

	logger.Info("badger store opened",
		"dir", bcfg.Dir,
		"in_memory", bcfg.InMemory,
		"collection", cfg.Collection)

	return s, nil
}

// badgerDoc is the on-disk record encoding.
type badgerDoc struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	Value     any       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *badgerDoc) record() domain.Record {
	return domain.Record{
		Key:       d.Key,
		Type:      domain.RecordType(d.Type),
		Value:     d.Value,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (s *BadgerStore) prefix(recordType domain.RecordType) []byte {
	return []byte(s.collection + "/" + string(recordType.Normalize()) + "/")
}

func (s *BadgerStore) storageKey(recordType domain.RecordType, key string) []byte {
	return append(s.prefix(recordType), domain.NormalizeKey(key)...)
}

// FindByType returns every record of the given type.
func (s *BadgerStore) FindByType(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrClosed
	}

	var records []domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix(recordType)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc, err := decodeDoc(raw)
			if err != nil {
				return err
			}
			records = append(records, doc.record())
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrQuery.WithCause(fmt.Errorf("badger: find %s: %w", recordType, err))
	}

	return records, nil
}

// FindOne returns the record for (recordType, key).
func (s *BadgerStore) FindOne(ctx context.Context, recordType domain.RecordType, key string) (*domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrClosed
	}

	var doc *badgerDoc
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = s.get(txn, recordType, key)
		return err
	})
	if err != nil {
		return nil, domain.ErrQuery.WithCause(fmt.Errorf("badger: find one %s/%s: %w", recordType, key, err))
	}
	if doc == nil {
		return nil, ErrRecordNotFound
	}

	rec := doc.record()
	return &rec, nil
}

// Upsert sets the value of (recordType, key), creating the record if absent.
func (s *BadgerStore) Upsert(ctx context.Context, recordType domain.RecordType, key string, v any) (WriteResult, error) {
	return s.write(ctx, recordType, key, func(doc *badgerDoc) error {
		doc.Value = v
		return nil
	})
}

// Push appends item to the array value of (recordType, key).
func (s *BadgerStore) Push(ctx context.Context, recordType domain.RecordType, key string, item any) (WriteResult, error) {
	return s.write(ctx, recordType, key, func(doc *badgerDoc) error {
		switch arr := doc.Value.(type) {
		case nil:
			doc.Value = []any{item}
		case []any:
			doc.Value = append(arr, item)
		default:
			return fmt.Errorf("value of %s/%s is %T, not an array", recordType, key, doc.Value)
		}
		return nil
	})
}

// FindElement returns the first element of the array value matching predicate.
func (s *BadgerStore) FindElement(ctx context.Context, recordType domain.RecordType, key string, predicate map[string]any) (any, bool, error) {
	rec, err := s.FindOne(ctx, recordType, key)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	elems, ok := rec.Value.([]any)
	if !ok {
		return nil, false, nil
	}
	for _, elem := range elems {
		if value.Matches(elem, predicate) {
			return elem, true, nil
		}
	}
	return nil, false, nil
}

// write applies mutate to the stored document inside an update transaction,
// retrying on transaction conflicts.
func (s *BadgerStore) write(ctx context.Context, recordType domain.RecordType, key string, mutate func(*badgerDoc) error) (WriteResult, error) {
	recordType = recordType.Normalize()
	key = domain.NormalizeKey(key)
	res := WriteResult{Key: key, Type: recordType}

	if s.closed.Load() {
		res.Err = domain.ErrClosed
		return res, res.Err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for attempt := 0; attempt <= s.cfg.MaxPushRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			doc, err := s.get(txn, recordType, key)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			res.Created = doc == nil
			if doc == nil {
				doc = &badgerDoc{Key: key, Type: string(recordType), CreatedAt: now}
			}
			if err := mutate(doc); err != nil {
				return err
			}
			doc.UpdatedAt = now
			res.UpdatedAt = now

			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			return txn.Set(s.storageKey(recordType, key), raw)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		s.logger.Debug("badger write conflict, retrying",
			"type", recordType,
			"key", key,
			"attempt", attempt+1)
	}

	if err != nil {
		res.Created = false
		res.UpdatedAt = time.Time{}
		res.Err = domain.ErrWrite.WithCause(fmt.Errorf("badger: write %s/%s: %w", recordType, key, err))
		return res, res.Err
	}
	return res, nil
}

// get loads the document for (recordType, key), or nil if absent.
func (s *BadgerStore) get(txn *badger.Txn, recordType domain.RecordType, key string) (*badgerDoc, error) {
	item, err := txn.Get(s.storageKey(recordType, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

func decodeDoc(raw []byte) (*badgerDoc, error) {
	var doc badgerDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &doc, nil
}

// GC runs value log garbage collection until nothing more can be rewritten.
// Returns bytes reclaimed (approximate).
func (s *BadgerStore) GC(ctx context.Context) (uint64, error) {
	if s.cfg.InMemory {
		return 0, nil
	}
	startTime := time.Now()

	var totalReclaimed uint64
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return totalReclaimed, fmt.Errorf("gc: %w", err)
		}
		// Badger doesn't report reclaimed bytes; count ~1MB per rewrite.
		totalReclaimed += 1 << 20
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcBytesReclaimed.Add(totalReclaimed)

	s.logger.Info("gc completed",
		"bytes_reclaimed", totalReclaimed,
		"elapsed", time.Since(startTime))

	return totalReclaimed, nil
}

// Close stops the background loops and closes the database.
func (s *BadgerStore) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("closing badger store")

	close(s.stopCh)
	<-s.doneCh
	if s.metricsDone != nil {
		<-s.metricsDone
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger size gauges with Prometheus.
// Returns the store for method chaining.
func (s *BadgerStore) RegisterMetrics(registry prometheus.Registerer) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brainsync",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brainsync",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brainsync",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	registry.MustRegister(s.metricsLSMSize, s.metricsValueLogSize, s.metricsLastGCTime)

	s.metricsDone = make(chan struct{})
	go s.metricsUpdateLoop()

	return s
}

func (s *BadgerStore) metricsUpdateLoop() {
	defer close(s.metricsDone)

	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lsm, vlog := s.db.Size()
			s.metricsLSMSize.Set(float64(lsm))
			s.metricsValueLogSize.Set(float64(vlog))
			if last := s.lastGCTime.Load(); last > 0 {
				s.metricsLastGCTime.Set(float64(last) / 1000.0)
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval, err := time.ParseDuration(s.cfg.GCInterval)
	if err != nil || interval <= 0 {
		s.logger.Error("invalid gc_interval, using default 10m", "error", err)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
