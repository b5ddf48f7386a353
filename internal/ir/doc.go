// Package ir provides the canonical intermediate representation for strata:
// the constrained Value type used for activity arguments and resource
// values, the compiled model and plan specs, and the canonical JSON and
// hashing used to identify them.
//
// ir imports nothing internal; every other package may import it.
//
// Key design constraints:
//   - Reals must be finite (NaN and ±Inf have no canonical form)
//   - All JSON tags use snake_case
//   - Simulated time is carried as Go duration strings ("90s", "1h30m")
package ir
