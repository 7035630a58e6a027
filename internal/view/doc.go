// Package view maintains the aggregate projection of a library: one Row per
// sound joining identity, display name, category, tags and membership mask.
//
// # Snapshots
//
// A View publishes immutable Snapshots through an atomic pointer. RefreshAll
// builds the next snapshot entirely off to the side and swaps it in, so a
// reader sees either the old rows or the new rows, never a mix. Snapshots
// carry the membership Index they were built with; masks are only interpreted
// against that Index.
//
// # Versions
//
// Every publication takes a new version from the view's logical clock.
// Structure() changes only on RefreshAll. RefreshRow keeps the structure and
// records the edited position in the snapshot's edit log, letting downstream
// pipelines patch a single row instead of re-evaluating everything.
//
// # Notifications
//
// Subscribers receive a Change after each successful publication. Payloads are
// advisory; consumers re-read the current snapshot.
package view
