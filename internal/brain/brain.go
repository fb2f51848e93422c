package brain

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/brainsync/internal/core/domain"
)

// DefaultSaveInterval is the auto-save period until ResetSaveInterval is called.
const DefaultSaveInterval = 5 * time.Second

// Brain is an in-memory key/value store with save and close events.
//
// Save handlers are called synchronously, in registration order, while the
// brain's data lock is held. They receive the live data and must not retain
// it past the call.
type Brain struct {
	mu   sync.Mutex
	data domain.Data

	saveHandlers  []func(domain.Data)
	closeHandlers []func()

	autoSave bool
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup

	closeOnce sync.Once
	closed    bool

	logger *slog.Logger
}

// New creates an empty brain with auto-save disabled.
func New(logger *slog.Logger) *Brain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Brain{
		data:     domain.Data{domain.TypePrivate: make(map[string]any)},
		interval: DefaultSaveInterval,
		logger:   logger.With("component", "brain"),
	}
}

// Set stores value under key in the private data.
func (b *Brain) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.private()[domain.NormalizeKey(key)] = value
}

// Get returns the private value for key.
func (b *Brain) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.private()[domain.NormalizeKey(key)]
	return v, ok
}

// Remove deletes key from the private data. Persisted records are not removed.
func (b *Brain) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.private(), domain.NormalizeKey(key))
}

// Keys returns the number of private keys.
func (b *Brain) Keys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.private())
}

func (b *Brain) private() map[string]any {
	m, ok := b.data[domain.TypePrivate]
	if !ok {
		m = make(map[string]any)
		b.data[domain.TypePrivate] = m
	}
	return m
}

// OnSave registers a save handler.
func (b *Brain) OnSave(fn func(domain.Data)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveHandlers = append(b.saveHandlers, fn)
}

// OnClose registers a close handler.
func (b *Brain) OnClose(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeHandlers = append(b.closeHandlers, fn)
}

// MergeData merges data into the brain. Top-level keys of each type overwrite
// existing keys wholesale; keys absent from data are left untouched.
func (b *Brain) MergeData(data domain.Data) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for recordType, entries := range data {
		recordType = recordType.Normalize()
		dst, ok := b.data[recordType]
		if !ok {
			dst = make(map[string]any, len(entries))
			b.data[recordType] = dst
		}
		for k, v := range entries {
			dst[k] = v
		}
	}
}

// Save emits a save event with the current data.
func (b *Brain) Save() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, fn := range b.saveHandlers {
		fn(b.data)
	}
}

// SetAutoSave enables or disables the periodic save ticker.
func (b *Brain) SetAutoSave(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.autoSave = enabled
	if enabled && !b.closed {
		b.startTickerLocked()
	} else {
		b.stopTickerLocked()
	}
}

// AutoSave reports whether the auto-save ticker is enabled.
func (b *Brain) AutoSave() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoSave
}

// ResetSaveInterval changes the auto-save period. A running ticker is
// restarted with the new period.
func (b *Brain) ResetSaveInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.interval = d
	if b.autoSave && !b.closed {
		b.stopTickerLocked()
		b.startTickerLocked()
	}
	b.logger.Debug("save interval reset", "interval", d)
}

// SaveInterval returns the current auto-save period.
func (b *Brain) SaveInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

// Close stops auto-save, emits a final save event and then the close event.
// Only the first call has an effect.
func (b *Brain) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.stopTickerLocked()
		b.mu.Unlock()

		b.wg.Wait()
		b.Save()

		b.mu.Lock()
		b.closed = true
		handlers := append([]func(){}, b.closeHandlers...)
		b.mu.Unlock()

		b.logger.Info("brain closing", "handlers", len(handlers))
		for _, fn := range handlers {
			fn()
		}
	})
}

func (b *Brain) startTickerLocked() {
	if b.ticker != nil {
		return
	}
	b.ticker = time.NewTicker(b.interval)
	b.stopCh = make(chan struct{})

	b.wg.Add(1)
	go b.tickLoop(b.ticker, b.stopCh)
}

func (b *Brain) stopTickerLocked() {
	if b.ticker == nil {
		return
	}
	b.ticker.Stop()
	close(b.stopCh)
	b.ticker = nil
	b.stopCh = nil
}

func (b *Brain) tickLoop(ticker *time.Ticker, stopCh chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case <-ticker.C:
			b.Save()
		case <-stopCh:
			return
		}
	}
}
