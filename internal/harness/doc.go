// Package harness provides conformance testing for enumeration cursors.
//
// A scenario builds one cursor over a set of pool sizes and a strategy,
// drives it through a list of operations, and checks the positions it
// produces. Every operation is recorded in a trace, which can be compared
// against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sizes: [2, 3]
//	strategy:
//	  kind: cartesian        # cartesian | random | filtered
//	  order: last_fastest    # last_fastest | first_fastest
//	  seed: 7                # random only
//	reject:                  # filtered only: positions the filter drops
//	  - [0, 1]
//	steps:
//	  - op: advance
//	    count: 2
//	    expect: [[0, 0], [0, 1]]
//	  - op: save
//	    slot: mid
//	  - op: skip
//	    count: 10
//	    expect_error: out_of_range
//	  - op: clone
//	    slot: copy
//	  - op: advance
//	    on: copy
//	assertions:
//	  - type: state
//	    step: 3
//	    exhausted: false
//	  - type: distinct
//
// # Operations
//
//   - advance: produce count positions (default 1); expect lists them
//   - skip: move count positions forward without producing them
//   - seek: jump to step "to"
//   - reset: return to the initial position
//   - save: store the cursor state blob in slot
//   - restore: load the state blob from slot
//   - clone: copy the cursor into a new cursor named slot
//
// Every operation applies to the cursor named by "on", default "main".
// expect_error names the error the operation must fail with: exhausted,
// out_of_range, corrupt_state, unsupported or invalid_configuration.
//
// # Assertion Types
//
//   - state: the cursor's step and/or exhaustion flag
//   - emitted: the number of positions the cursor produced
//   - distinct: no position was produced twice
//   - covers: every position of the space was produced exactly once
//   - same_as: the cursor produced the same positions as "other"
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/cartesian.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
