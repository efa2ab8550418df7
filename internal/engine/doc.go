// Package engine implements the synchronization engine that moves values
// between host variables and aspect variables around each model step.
//
// ARCHITECTURE:
//
// Storage:
// Every variable named by a provided-variable registration or a rule is
// interned into a fixed slot of a Storage at build time. Rules never look up
// variables by name while ticking.
//
// Programs:
// The rules of one phase are compiled into a Program. Program.Run copies every
// source slot into a preallocated scratch buffer before any destination is
// written, so all rules in a phase observe phase-start values regardless of
// registration order. Run does not allocate.
//
// Single Writer:
// Storage and programs are owned by one simulation and driven from one
// goroutine. The Clock is the only type here that is safe for concurrent use.
//
// Determinism:
// Rules execute in registration order, ticks are stamped by a monotonic
// logical clock and nothing reads the wall clock.
package engine
