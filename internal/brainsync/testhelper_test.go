package brainsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/brainsync/internal/brain"
	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/internal/storage"
)

var errInjected = errors.New("injected failure")

// recordingGateway wraps a real gateway, counts writes and injects failures.
type recordingGateway struct {
	storage.Gateway

	upserts atomic.Int32
	pushes  atomic.Int32

	// The first slowUpserts upserts sleep for upsertDelay.
	slowUpserts int32
	upsertDelay time.Duration

	mu          sync.Mutex
	failFind    bool
	failUpserts map[string]bool
}

func (g *recordingGateway) FindByType(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	g.mu.Lock()
	fail := g.failFind
	g.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return g.Gateway.FindByType(ctx, recordType)
}

func (g *recordingGateway) Upsert(ctx context.Context, recordType domain.RecordType, key string, v any) (storage.WriteResult, error) {
	if n := g.upserts.Add(1); n <= g.slowUpserts {
		time.Sleep(g.upsertDelay)
	}

	g.mu.Lock()
	fail := g.failUpserts[key]
	g.mu.Unlock()
	if fail {
		return storage.WriteResult{}, errInjected
	}
	return g.Gateway.Upsert(ctx, recordType, key, v)
}

func (g *recordingGateway) Push(ctx context.Context, recordType domain.RecordType, key string, item any) (storage.WriteResult, error) {
	g.pushes.Add(1)
	return g.Gateway.Push(ctx, recordType, key, item)
}

func (g *recordingGateway) failUpsert(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failUpserts == nil {
		g.failUpserts = make(map[string]bool)
	}
	g.failUpserts[key] = true
}

func (g *recordingGateway) recoverUpsert(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failUpserts, key)
}

func newTestGateway(t *testing.T) *recordingGateway {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.Backend = storage.BackendBadger
	cfg.Badger.InMemory = true

	gw, err := storage.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open gateway: %v", err)
	}
	t.Cleanup(func() { gw.Close(context.Background()) })
	return &recordingGateway{Gateway: gw}
}

func newTestBrain(t *testing.T) *brain.Brain {
	t.Helper()
	b := brain.New(nil)
	t.Cleanup(b.Close)
	return b
}

// testOptions uses a long save interval so the auto-save ticker never fires
// during a test.
func testOptions() Options {
	opts := DefaultOptions()
	opts.SaveInterval = time.Hour
	return opts
}

func connect(t *testing.T, b *brain.Brain, gw storage.Gateway) *Adapter {
	t.Helper()
	a, err := Connect(context.Background(), b, gw, testOptions())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return a
}

func seed(t *testing.T, gw storage.Gateway, recordType domain.RecordType, key string, v any) {
	t.Helper()
	if _, err := gw.Upsert(context.Background(), recordType, key, v); err != nil {
		t.Fatalf("seed %s/%s: %v", recordType, key, err)
	}
}

func private(data map[string]any) domain.Data {
	return domain.Data{domain.TypePrivate: data}
}

func newExampleGateway() storage.Gateway {
	cfg := storage.DefaultConfig()
	cfg.Backend = storage.BackendBadger
	cfg.Badger.InMemory = true

	gw, err := storage.Open(context.Background(), cfg, nil)
	if err != nil {
		panic(err)
	}
	return gw
}

// cacheEntries returns a shallow copy of the adapter's snapshot cache.
func cacheEntries(a *Adapter) map[string]any {
	a.cache.mu.Lock()
	defer a.cache.mu.Unlock()

	out := make(map[string]any, len(a.cache.entries))
	for k, v := range a.cache.entries {
		out[k] = v
	}
	return out
}
