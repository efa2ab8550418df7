// Package harness runs simulation scenarios and compares their recorded
// traces against golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: cargo_door
//	description: "The cargo door request follows the interactive point"
//	config: |
//	  prefix: "A32NX_"
//	  aspect: doors: rules: [{
//	    from: {aircraft: "INTERACTIVE POINT OPEN", unit: "Position", index: 5}
//	    to: "L:FWD_DOOR_CARGO_OPEN_REQ"
//	    transform: {kind: "step", threshold: 0}
//	  }]
//	host:
//	  - variable: "A:INTERACTIVE POINT OPEN:5 (Position)"
//	    value: 0.5
//	events:
//	  - frame: 16ms
//	  - set:
//	      - variable: "A:INTERACTIVE POINT OPEN:5 (Position)"
//	        value: 0
//	  - frame: 16ms
//	  - activate_failure: 24000
//	assertions:
//	  - type: value
//	    variable: "L:FWD_DOOR_CARGO_OPEN_REQ"
//	    value: 0
//
// A scenario takes its configuration from exactly one of aircraft ("a32nx",
// the built-in A320 with its systems model), config (inline CUE) or
// config_file (a CUE file next to the scenario). The optional model section
// scripts a testutil.ScriptedModel with copies and constant writes.
//
// # Assertion Types
//
//   - value: a simulation storage value, within tolerance
//   - host: a host variable value, within tolerance
//   - failure_active: whether a failure type is active after the run
//   - error: the configuration or runtime error code that stopped the run
//   - trace_count: the number of tick or failure events in the trace
//
// A run that stops with an error fails unless an error assertion expects it.
//
// # Deterministic Traces
//
// Every run records into a fresh in-memory SQLite store under the session
// ID "scenario-<name>", and the trace is read back from that store. The
// golden snapshot is canonical JSON of that trace, optionally restricted to
// the variables listed under record.
package harness
