// Package storage provides the document store gateway for brainsync.
//
// The gateway is a thin capability over a single collection of brain records.
// It only supports the fixed access patterns the sync engine needs:
//
//   - FindByType: every record of one type (load at startup)
//   - FindOne: a single record by (type, key)
//   - Upsert: replace a record's value, creating it when absent
//   - Push: atomically append to an array-valued record, creating it when absent
//   - FindElement: the first array element matching a partial-field predicate
//
// Two backends are provided:
//
//   - MongoStore: MongoDB via the official v2 driver (production default)
//   - BadgerStore: embedded Badger v3, on disk or fully in memory
//
// Keys are lowercased by the gateway before every write and query, so callers
// never need to normalize them.
package storage
