package brainsync

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/internal/storage"
	"github.com/yndnr/brainsync/internal/telemetry/metric"
)

// Default option values.
const (
	DefaultSaveInterval      = 10 * time.Second
	DefaultMaxInflightWrites = 16
)

// Host is the in-memory brain an Adapter keeps in sync.
type Host interface {
	// OnSave registers fn to receive the brain's data on every save event.
	// fn must not retain the data after it returns.
	OnSave(fn func(domain.Data))

	// OnClose registers fn to run once when the brain shuts down.
	OnClose(fn func())

	// MergeData shallow-merges data into the brain.
	MergeData(data domain.Data)

	SetAutoSave(enabled bool)
	ResetSaveInterval(d time.Duration)
}

// Options configures an Adapter.
type Options struct {
	// SaveInterval is applied to the host after a successful load.
	SaveInterval time.Duration

	// MaxInflightWrites bounds concurrent writes within one save cycle.
	MaxInflightWrites int

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// DefaultOptions returns the default adapter options.
func DefaultOptions() Options {
	return Options{
		SaveInterval:      DefaultSaveInterval,
		MaxInflightWrites: DefaultMaxInflightWrites,
	}
}

// Adapter synchronizes a Host with a storage.Gateway.
type Adapter struct {
	host    Host
	gateway storage.Gateway
	opts    Options
	logger  *slog.Logger
	metrics *metric.Registry
	cache   *snapshotCache

	// mu guards closed and tail. Save cycles are queued under mu in diff
	// order, and each write phase starts only after the previous one is done,
	// so writes for a key reach the gateway in the order they were diffed.
	mu      sync.Mutex
	closed  bool
	tail    chan struct{}
	pending sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New creates an adapter without loading or registering any handlers.
// The adapter owns gw and closes it on Close.
func New(host Host, gw storage.Gateway, opts Options) *Adapter {
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = DefaultSaveInterval
	}
	if opts.MaxInflightWrites <= 0 {
		opts.MaxInflightWrites = DefaultMaxInflightWrites
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.NewRegistry()
	}

	return &Adapter{
		host:    host,
		gateway: gw,
		opts:    opts,
		logger:  opts.Logger.With("component", "brainsync"),
		metrics: opts.Metrics,
		cache:   newSnapshotCache(),
	}
}

// Connect creates an adapter, loads persisted private data into host and
// then registers the adapter's save and close handlers on host.
//
// On load failure no handlers are registered and the host's auto-save stays
// disabled. The caller still owns gw in that case.
func Connect(ctx context.Context, host Host, gw storage.Gateway, opts Options) (*Adapter, error) {
	a := New(host, gw, opts)
	if err := a.Load(ctx); err != nil {
		return nil, err
	}

	host.OnSave(a.handleSave)
	host.OnClose(a.handleClose)
	return a, nil
}

// Metrics returns the adapter's metric registry.
func (a *Adapter) Metrics() *metric.Registry {
	return a.metrics
}

// handleSave runs the diff inline and queues the write phase behind any
// earlier one.
func (a *Adapter) handleSave(data domain.Data) {
	cycle, prev, done := a.enqueue(data, domain.TypePrivate)
	if done == nil {
		return
	}
	go func() {
		defer a.pending.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		a.flush(context.Background(), cycle)
	}()
}

// enqueue diffs data and reserves the next slot in the write order.
// A nil cycle means the adapter is closed; a nil done means the cycle has
// nothing to write. Otherwise the caller must wait on prev before flushing,
// then close done and call pending.Done.
func (a *Adapter) enqueue(data domain.Data, recordType domain.RecordType) (cycle *saveCycle, prev, done chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, nil, nil
	}
	cycle = a.diff(data, recordType)
	if len(cycle.writes) == 0 && len(cycle.rejected) == 0 {
		return cycle, nil, nil
	}

	prev, done = a.tail, make(chan struct{})
	a.tail = done
	a.pending.Add(1)
	return cycle, prev, done
}

func (a *Adapter) handleClose() {
	if err := a.Close(context.Background()); err != nil {
		a.handle("close document store", err)
	}
}

// Close waits for in-flight save cycles and closes the gateway.
// Subsequent calls return the first call's result.
func (a *Adapter) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.pending.Wait()
		a.closeErr = a.gateway.Close(ctx)
		a.logger.Info("adapter closed")
	})
	return a.closeErr
}

// handle is the adapter's error handler: it logs err with a stack trace.
func (a *Adapter) handle(msg string, err error, args ...any) {
	attrs := append([]any{
		"error", err,
		"code", domain.GetErrorCode(err),
		"stack", string(debug.Stack()),
	}, args...)
	a.logger.Error(msg, attrs...)
}

func (a *Adapter) checkOpen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domain.ErrClosed
	}
	return nil
}

// writeError fills in res for a failed gateway call.
func writeError(res storage.WriteResult, recordType domain.RecordType, key string, err error) storage.WriteResult {
	if res.Key == "" {
		res.Key = domain.NormalizeKey(key)
	}
	if res.Type == "" {
		res.Type = recordType
	}
	if res.Err == nil {
		res.Err = err
	}
	if !domain.IsDomainError(res.Err, "") {
		res.Err = domain.ErrWrite.Wrap(fmt.Errorf("%s/%s: %w", recordType, key, res.Err))
	}
	return res
}
