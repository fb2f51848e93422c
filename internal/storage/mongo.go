package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/pkg/value"
)

// DefaultMongoDatabase is used when the connection URL names no database.
const DefaultMongoDatabase = "nubot-brain"

// MongoStore implements Gateway on a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
	closed     atomic.Bool
}

// mongoDoc is the persisted record shape.
type mongoDoc struct {
	Key       string    `bson:"key"`
	Type      string    `bson:"type"`
	Value     any       `bson:"value"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures the
// (type, key) unique index exists.
func NewMongoStore(ctx context.Context, cfg Config, logger *slog.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbName, err := mongoDatabaseName(cfg.Mongo.URL)
	if err != nil {
		return nil, domain.ErrConnection.WithCause(err)
	}

	timeout := cfg.Mongo.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// The driver keeps pooled connections alive and reconnects on its own;
	// reads and writes are retried once on transient network errors.
	opts := options.Client().
		ApplyURI(cfg.Mongo.URL).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, domain.ErrConnection.WithCause(fmt.Errorf("mongo: connect: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.ErrConnection.WithCause(fmt.Errorf("mongo: ping: %w", err))
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(cfg.Collection),
		logger:     logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.ErrConnection.WithCause(err)
	}

	logger.Info("mongo store connected",
		"url", cfg.Mongo.URL,
		"database", dbName,
		"collection", cfg.Collection)

	return s, nil
}

// mongoDatabaseName extracts the database name from a connection URL.
func mongoDatabaseName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("mongo: parse url: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("mongo: unsupported url scheme %q", u.Scheme)
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name, nil
	}
	return DefaultMongoDatabase, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "type", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("type_key_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create index: %w", err)
	}
	return nil
}

func recordFilter(recordType domain.RecordType, key string) bson.M {
	return bson.M{
		"type": string(recordType.Normalize()),
		"key":  domain.NormalizeKey(key),
	}
}

func (d *mongoDoc) record() (domain.Record, error) {
	v, err := value.Normalize(d.Value)
	if err != nil {
		return domain.Record{}, err
	}
	return domain.Record{
		Key:       d.Key,
		Type:      domain.RecordType(d.Type),
		Value:     v,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// FindByType returns every record of the given type.
func (s *MongoStore) FindByType(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrClosed
	}

	cursor, err := s.collection.Find(ctx, bson.M{"type": string(recordType.Normalize())})
	if err != nil {
		return nil, domain.ErrQuery.WithCause(fmt.Errorf("mongo: find %s: %w", recordType, err))
	}
	defer cursor.Close(ctx)

	var docs []mongoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.ErrQuery.WithCause(fmt.Errorf("mongo: decode %s: %w", recordType, err))
	}

	records := make([]domain.Record, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].record()
		if err != nil {
			return nil, domain.ErrQuery.WithCause(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindOne returns the record for (recordType, key).
func (s *MongoStore) FindOne(ctx context.Context, recordType domain.RecordType, key string) (*domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrClosed
	}

	var doc mongoDoc
	err := s.collection.FindOne(ctx, recordFilter(recordType, key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, domain.ErrQuery.WithCause(fmt.Errorf("mongo: find one %s/%s: %w", recordType, key, err))
	}

	rec, err := doc.record()
	if err != nil {
		return nil, domain.ErrQuery.WithCause(err)
	}
	return &rec, nil
}

// Upsert sets the value of (recordType, key), creating the record if absent.
func (s *MongoStore) Upsert(ctx context.Context, recordType domain.RecordType, key string, v any) (WriteResult, error) {
	now := time.Now().UTC()
	return s.update(ctx, recordType, key, now, bson.M{
		"$set":         bson.M{"value": v, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	})
}

// Push atomically appends item to the array value of (recordType, key).
func (s *MongoStore) Push(ctx context.Context, recordType domain.RecordType, key string, item any) (WriteResult, error) {
	now := time.Now().UTC()
	return s.update(ctx, recordType, key, now, bson.M{
		"$push":        bson.M{"value": item},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	})
}

func (s *MongoStore) update(ctx context.Context, recordType domain.RecordType, key string, now time.Time, update bson.M) (WriteResult, error) {
	res := WriteResult{Key: domain.NormalizeKey(key), Type: recordType.Normalize()}
	if s.closed.Load() {
		res.Err = domain.ErrClosed
		return res, res.Err
	}

	out, err := s.collection.UpdateOne(ctx,
		recordFilter(recordType, key),
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		res.Err = domain.ErrWrite.WithCause(fmt.Errorf("mongo: update %s/%s: %w", recordType, key, err))
		return res, res.Err
	}

	res.Created = out.UpsertedCount > 0
	res.UpdatedAt = now
	return res, nil
}

// FindElement returns the first element of the array value matching predicate,
// using $elemMatch with a positional projection.
func (s *MongoStore) FindElement(ctx context.Context, recordType domain.RecordType, key string, predicate map[string]any) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, domain.ErrClosed
	}

	filter := recordFilter(recordType, key)
	filter["value"] = bson.M{"$elemMatch": elemMatchFilter(predicate)}
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "value.$": 1})

	var doc struct {
		Value []any `bson:"value"`
	}
	err := s.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.ErrQuery.WithCause(fmt.Errorf("mongo: find element %s/%s: %w", recordType, key, err))
	}
	if len(doc.Value) == 0 {
		return nil, false, nil
	}

	elem, err := value.Normalize(doc.Value[0])
	if err != nil {
		return nil, false, domain.ErrQuery.WithCause(err)
	}
	return elem, true, nil
}

// elemMatchFilter flattens nested predicate objects into dotted paths, so an
// embedded document matches field by field instead of as a whole. An empty
// nested object matches any embedded document.
func elemMatchFilter(predicate map[string]any) bson.M {
	out := bson.M{}
	flattenPredicate(out, "", predicate)
	return out
}

func flattenPredicate(out bson.M, prefix string, predicate map[string]any) {
	for k, v := range predicate {
		path := prefix + k
		sub, ok := v.(map[string]any)
		switch {
		case !ok:
			out[path] = v
		case len(sub) == 0:
			out[path] = bson.M{"$type": "object"}
		default:
			flattenPredicate(out, path+".", sub)
		}
	}
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("closing mongo store")

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
