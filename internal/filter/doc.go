// Package filter narrows an AggregateView through an ordered chain of stages.
//
// A Stage is a tagged variant over five predicate kinds (name, collection,
// category, tag, bank). A Pipeline evaluates stages in order; stage i sees
// only the rows accepted by stage i-1, so the final row set is the logical
// AND of every stage.
//
// # Incremental evaluation
//
// Each stage output records the stage generation and the upstream revision it
// was built from. Reads compare those against the current values and rebuild
// only stale outputs:
//
//   - structural view change: every stage rebuilds
//   - stage value change: that stage and everything after it rebuild, over the
//     rows surviving the stage before it
//   - single-row view edit: the edited base positions are re-tested in every
//     stage; nothing else is evaluated
//
// Outputs are sets of base positions. Row order is always base order (sound
// uid order) unless Sorted is used.
package filter
