// Package harness runs simulation scenarios as executable tests.
//
// A scenario names a CUE model directory, carries a plan inline, and lists
// assertions on the results of simulating that plan.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: single-image
//	description: "One image drains and restores the battery"
//	model: ../models/orbiter
//	plan:
//	  name: day-1
//	  horizon: 2m
//	  directives:
//	    - {id: img-1, type: Image, start: 10s}
//	assertions:
//	  - type: task_span
//	    directive: img-1
//	    end: 40s
//	  - type: resource_value
//	    resource: battery
//	    at: 40s
//	    value: 90
//
// # Assertion Types
//
//   - task_span: the start, end or status of a directive's or activity's task
//   - task_count: the number of tasks of an activity type
//   - resource_value: a resource's value at an instant, or at the end
//   - conflict: the run halted on a conflict, optionally naming the cell
//   - error: the run halted with an error containing a substring
//   - deterministic: replaying the stored run reproduces its results hash
//
// A run that halts fails the scenario unless a conflict or error assertion
// expects it.
//
// # Deterministic Testing
//
// Every scenario runs under a fixed run ID and stores its run in a fresh
// in-memory SQLite database, so repeated runs produce identical results and
// golden snapshots compare byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/single_image.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
