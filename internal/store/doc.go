// Package store provides the record sources patchlib indexes.
//
// Store is SQLite-backed and durable; MemStore keeps everything in memory for
// scenarios and tests. Both implement library.RecordSource with the same
// ordering guarantees.
//
// # Ordering
//
//   - Sounds: ORDER BY uid ASC
//   - Collections: factory first, then position ASC, then id ASC
//   - Placements within a collection: ORDER BY slot ASC
//
// Identical data therefore always produces identical enumerations, which the
// view relies on for reproducible snapshots.
//
// # Schema
//
//   - collections(id, name UNIQUE, kind, position)
//   - sounds(uid, name, category, tags JSON array)
//   - slots(collection_id, slot, uid) PRIMARY KEY (collection_id, slot)
//
// The slots primary key enforces "at most one sound per slot"; CHECK
// constraints keep slots in [0, 1023] and categories in [0, 12].
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
