// Package brainsync persists a bot brain to a document store.
//
// An Adapter connects a Host (the in-memory brain) to a storage.Gateway:
//
//   - Load merges persisted private records into the host once at startup
//   - Save writes back only the keys that changed since the last sync
//   - Store, Retrieve and Find operate on the append-only side collection,
//     which is never loaded into memory
//
// Change detection compares each key against a snapshot cache holding a deep
// copy of the last persisted value. The cache is rebuilt on load and updated
// per key before the corresponding write is issued.
package brainsync
