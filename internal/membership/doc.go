// Package membership computes which collections contain each sound.
//
// For a fixed, ordered list of collections every collection receives a bit
// position: factory collections first at the lowest bits, user collections
// after them, both in source order. A sound's membership mask has bit i set
// iff it occupies a slot in the collection holding bit i.
//
// Masks are roaring bitmaps so the number of user collections is unbounded.
//
// # Invalidation
//
// An Index is immutable. When the collection list changes a new Index is
// built from scratch and published together with the rows that reference it;
// bit positions are never shifted in place, so a mask is only ever
// interpreted against the Index that produced it.
//
// # Unknown collections
//
// BitFor reports ok=false for a collection the Index does not know and MaskOf
// ignores such ids, which reads as "no membership". MustBitFor panics instead
// and is meant for call sites where an unknown id is a programming error.
package membership
