// Package harness runs library scenarios end to end.
//
// A scenario loads a fixture library into an in-memory store, builds a
// filter pipeline through the engine, applies a sequence of edits and
// filter changes, optionally opens an export session, and then checks the
// outcome.
//
// # Scenario Format
//
//	name: bass_in_live
//	description: "Bass sounds placed in Live"
//	library: ../fixtures/basic.yaml   # relative to the scenario file
//	session_id: s-1                   # optional, default test-session-default
//	stages:
//	  - kind: name
//	  - kind: bank
//	    collection: Live
//	steps:
//	  - filter: {stage: 0, name: bass}
//	  - edit: {sound: Lead Two, rename: Bass Two}
//	  - place: {collection: Live, slot: 7, sound: Bass Four}
//	  - refresh: true
//	allocate:
//	  select: [Bass One, Pad Three]   # default: every row the pipeline shows
//	  from: Live
//	  mode: distribute-category
//	  order: name
//	  export_to: Live
//	assertions:
//	  - {type: row_count, count: 2}
//	  - {type: rows, sounds: [Bass One, Bass Four]}
//	  - {type: alert, alert: None}
//	  - type: allocation
//	    slots: {Bass One: 0, Pad Three: 128}
//
// # Assertion Types
//
//   - row_count: the pipeline's final row count
//   - rows: the final rows by name, in pipeline order
//   - alert: the allocation alert after the allocate block
//   - allocation: destination slots by sound name (subset match)
//
// # Golden Files
//
// RunWithGolden snapshots the final rows and allocation as indented JSON
// under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
