// Package pipeline executes an ordered list of stages over a shared run
// state.
//
// Each stage receives a read-only copy of the current State and returns an
// Update — the set of fields it wants to change. The executor merges updates
// field by field, so a stage overwrites only what it explicitly sets and the
// state has exactly one writer at any instant.
//
// Failure containment: a stage reports failure through Update.Status rather
// than an error return, and a panicking stage is recovered into an
// unexpected_failure update. Once the state is in error, later stages are
// skipped unless they opt in with RunOnError (the report stage does, so a
// failed run still renders a failure report).
package pipeline
