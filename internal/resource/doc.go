// Package resource provides the standard mission resources built on timeline
// cells: discrete registers, integer counters, linear accumulators and the
// activity log.
//
// Each constructor registers a topic and a cell of the same name and exports
// the cell as a named resource, so it shows up in results profiles.
package resource
