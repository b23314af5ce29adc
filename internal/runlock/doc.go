// Package runlock tracks which controlled quantities and measurables are driven
// by an active sweep run.
//
// # Purpose
//
// Two runs must never drive the same instrument parameter at the same time. The
// engine acquires a lease on every target of a plan (each swept quantity and
// each measurable, by full name) before the first set, and releases them all
// once the run has been finalized.
//
// # Concurrency Model
//
// Leases live in a sync.Map keyed by target name. Acquisition is all-or-nothing:
// if any target is held by another run, the targets taken so far are rolled back
// and the caller either gets a *errdefs.ConcurrentRunError or, when waiting is
// requested, blocks until the conflicting lease is released and retries.
//
// A Registry is explicit state owned by the caller. Engines that should exclude
// each other must share one Registry.
package runlock
