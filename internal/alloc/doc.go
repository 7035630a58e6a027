// Package alloc assigns destination slots to export candidates.
//
// The passes are pure functions over candidate lists:
//
//   - AutoIndex keeps each candidate's source slot and resolves duplicates,
//     then unknowns, from one shared pool of used slots
//   - Sequential numbers candidates 0, 1, 2, ... in a chosen order
//   - Distribute packs category or tag groups into banks of 128
//   - FixIndexes renumbers colliding destinations forward
//
// A pass that cannot produce a complete, duplicate-free assignment inside
// [0, 1023] returns an Alert and no destinations. Allocator wraps the passes
// with session state and keeps the last valid assignment when a pass alerts.
package alloc
