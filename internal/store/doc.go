// Package store provides SQLite-backed durable storage for simulation runs.
//
// A stored run keeps everything needed to reproduce it:
//   - Runs: the model and plan as JSON, their hashes, and the results hash
//   - Task spans: one row per task the engine created
//   - Profile points: the value history of every exported resource
//
// Runs are written once. Writing a run ID that already exists is a no-op, so
// a retried write cannot duplicate spans or points.
//
// # Ordering
//
// Runs are listed by seq (insertion order), spans by task ID, and profile
// points by (resource_idx, idx). Nothing is ordered by wall-clock time.
//
// # Replay
//
// Replay re-simulates a stored run from its stored model and plan and compares
// the new results hash against the stored one. The engine is deterministic, so
// any mismatch means the engine changed behavior.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
