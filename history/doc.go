// Package history houses conversation stores keyed by conversation id. The
// kernel itself is stateless across runs; a Store lets callers persist the
// transcript a run produced and feed it back into the next run.
//
// Add additional backends (Redis, Postgres, etc.) in sub packages without
// changing any calling code; only the wiring layer needs to decide which
// implementation to instantiate.
package history
