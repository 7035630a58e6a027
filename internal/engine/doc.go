// Package engine wires the library index into a single-writer event loop.
//
// An Engine owns one AggregateView (package view) over a RecordSource and at
// most one filter pipeline attached to it. Mutations arrive either through
// the synchronous methods (Refresh, RowEdited, Export) or as queued events
// processed by Run. Run processes events one at a time in FIFO order, so a
// refresh never interleaves with a filter change or an export.
//
// Export sessions pair a selection of rows with a slot allocator. A session
// is ephemeral: it is never persisted, and an Export writes its plan through
// the RecordSource and then rebuilds the view structurally, since the target
// collection's membership changed.
//
// Errors follow two paths. Capacity conditions (allocation alerts) never fail
// a pass; they block Export with an ExportError coded EXPORT_BLOCKED. Rows
// that vanished from the snapshot between selection and session creation are
// silently left out of the session.
package engine
