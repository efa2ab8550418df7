// Package a32nx configures the bridge for the A320: the electrical bus and
// APU wiring, the failure table, the host variables the systems model reads,
// and the aspects synchronizing cockpit and host state.
//
// NewSystems is a compact reference systems model. It is deterministic for a
// given seed and exists so the bridge can be run and traced end to end.
package a32nx
