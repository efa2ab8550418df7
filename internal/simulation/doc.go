// Package simulation assembles and drives an aircraft systems simulation.
//
// A Builder collects the electrical and APU wiring, the failure table, the
// variables the model may read from the host and the aspects that
// synchronize host and aspect variables. Build validates everything, compiles
// the rules into one program per phase and only then constructs the model.
//
// Each host frame runs:
//
//  1. read provided variables and rule sources from the host
//  2. run PreTick rules, write their host destinations
//  3. step the model once
//  4. run PostTick rules, write their host destinations
//  5. record the tick when a recorder is configured
//
// A Handler feeds host events to a Simulation one at a time; Run is the
// blocking receive-dispatch loop. The first runtime error ends the loop.
package simulation
