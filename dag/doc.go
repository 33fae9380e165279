// Package dag is a dependency-aware task execution engine.
//
// A Task wraps one external command together with the files it consumes and
// produces. An Orchestrator owns a set of tasks, infers ordering edges from
// file production and consumption, and runs the graph under a bounded pool of
// workers. Explicit successor relations (WithNext) express ordering without a
// shared file; both mechanisms populate the same edge sets.
//
// Scheduling is readiness-gated: a task starts only after every predecessor
// completed successfully. Ready tasks wait on a last-in-first-out stack, so
// under scarce workers the most recently unlocked task runs first.
//
// Failures are local. A failed task never unlocks its successors and the run
// continues with independent branches until the stack drains.
//
// Produced and consumed files are checked with plain existence tests. A stale
// output is indistinguishable from a fresh one.
package dag
