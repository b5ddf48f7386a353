// Package engine implements the strata simulation engine.
//
// The engine runs cooperatively scheduled tasks against a mission model's
// timeline and advances simulated time from one scheduled instant to the
// next.
//
// ARCHITECTURE:
//
// Single-Writer Agenda:
// Jobs (pending task steps) sit in a priority queue ordered by simulated time
// and then by scheduling sequence. Step pops every job due at the earliest
// instant and runs them as one batch.
//
// Batch Execution:
//  1. The trunk history is forked once per job; each job runs on its own side.
//  2. Jobs run depth-first on a frame stack. A task that spawns forks its own
//     tip; the child runs on the new branch before the parent's frame closes.
//  3. Exhausted frames are joined into their parent's tip, so events of
//     tasks running at the same instant are concurrent, never sequenced.
//  4. The joined trunk is committed. A concurrency conflict halts the engine.
//  5. Conditions whose read set intersects the touched cells are re-polled.
//
// Determinism:
// Task IDs and job sequence numbers come from one logical Clock. Wall-clock
// time is never consulted and maps are never iterated in an order that
// reaches the history, so the same model and inputs always produce the same
// history, spans and errors.
//
// Failure:
// Conflicts, task errors, quota overruns and contract violations stop the
// engine. The failing batch is discarded; every later call returns ErrHalted
// wrapping the original error.
package engine
