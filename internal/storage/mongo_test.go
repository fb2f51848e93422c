package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/pkg/value"
)

// newMongoStore connects to the server named by BRAIN_TEST_MONGODB_URL using a
// fresh collection, and drops it when the test ends.
func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()

	url := os.Getenv("BRAIN_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("BRAIN_TEST_MONGODB_URL not set")
	}

	cfg := DefaultConfig()
	cfg.Mongo.URL = url
	cfg.Collection = fmt.Sprintf("brain-testing-%d", time.Now().UnixNano())

	ctx := context.Background()
	store, err := NewMongoStore(ctx, cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.collection.Drop(ctx)
		store.Close(ctx)
	})
	return store
}

func TestElemMatchFilter(t *testing.T) {
	got := elemMatchFilter(map[string]any{
		"test": "test",
		"user": map[string]any{
			"name":  "tim",
			"roles": map[string]any{"admin": true},
			"prefs": map[string]any{},
		},
	})

	want := map[string]any{
		"test":             "test",
		"user.name":        "tim",
		"user.roles.admin": true,
	}
	if len(got) != len(want)+1 {
		t.Fatalf("filter = %v", got)
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("filter[%q] = %v, want %v", k, got[k], w)
		}
	}
	if prefs, ok := got["user.prefs"].(bson.M); !ok || prefs["$type"] != "object" {
		t.Errorf("filter[user.prefs] = %v, want an object type check", got["user.prefs"])
	}
}

func TestMongoStore_UpsertAndFindByType(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	doors := []any{map[string]any{"door 1": "dead end"}, map[string]any{"door 2": "win a prize"}}
	res, err := store.Upsert(ctx, domain.TypePrivate, "Doors", doors)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created {
		t.Error("first upsert should create the record")
	}

	res, err = store.Upsert(ctx, domain.TypePrivate, "doors", doors)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created {
		t.Error("second upsert should update in place")
	}

	records, err := store.FindByType(ctx, domain.TypePrivate)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Key != "doors" {
		t.Errorf("key = %q, want %q", records[0].Key, "doors")
	}
	if !value.Equal(records[0].Value, doors) {
		t.Errorf("value = %v, want %v", records[0].Value, doors)
	}
}

func TestMongoStore_PushAndFindElement(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	if _, err := store.Push(ctx, domain.TypeStored, "test_key", map[string]any{"test": "test", "foo": "bar"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Push(ctx, domain.TypeStored, "TEST_KEY", "v2"); err != nil {
		t.Fatal(err)
	}

	rec, err := store.FindOne(ctx, domain.TypeStored, "test_key")
	if err != nil {
		t.Fatal(err)
	}
	if items := rec.Value.([]any); len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", items)
	}

	elem, ok, err := store.FindElement(ctx, domain.TypeStored, "test_key", map[string]any{"test": "test"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if want := map[string]any{"test": "test", "foo": "bar"}; !value.Equal(elem, want) {
		t.Errorf("elem = %v, want %v", elem, want)
	}

	_, err = store.FindOne(ctx, domain.TypeStored, "missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
	t.Run("nested predicate matches field by field", func(t *testing.T) {
		store.Push(ctx, domain.TypeStored, "users", map[string]any{"user": map[string]any{"name": "tim", "id": 7}})

		elem, ok, err := store.FindElement(ctx, domain.TypeStored, "users", map[string]any{"user": map[string]any{"id": 7}})
		if err != nil || !ok {
			t.Fatalf("FindElement() = %v, %v, %v", elem, ok, err)
		}
		if want := map[string]any{"user": map[string]any{"name": "tim", "id": 7}}; !value.Equal(elem, want) {
			t.Errorf("elem = %v, want %v", elem, want)
		}
	})
}
