// Package domain defines the core domain models for brainsync.
//
// Domain models are pure values without IO dependencies. This package contains:
//
//   - Record: the persisted unit mirrored between the brain and the database
//   - RecordType: the "_private" / "_stored" discriminator
//   - Errors: structured error definitions shared by storage and sync layers
package domain
