// Package library defines the data model shared by every patchlib component.
//
// A library is a set of fixed-size patch records ("sounds") plus any number of
// collections. Each collection exposes 1024 addressable slots arranged as
// 8 banks of 128 programs. A sound may occupy slots in several collections at
// once; within one collection a slot holds at most one sound.
//
// # Identity
//
// Sounds are identified by a UID allocated by the external store. Nothing in
// patchlib allocates or frees a UID.
//
// # Slot arithmetic
//
//	bank    = slot >> 7
//	program = slot & 127
//
// Slots outside [0, 1023] are never valid. NoSlot (-1) marks an absent or
// unknown slot.
//
// # Record sources
//
// RecordSource is the capability every index, view and allocator consumes.
// internal/store provides a SQLite implementation and an in-memory one.
package library
