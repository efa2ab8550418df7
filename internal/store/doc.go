// Package store provides SQLite-backed durable storage for simulation traces.
//
// A trace is an append-only log of:
//   - Sessions: one per simulation run, with the configuration hash
//   - Ticks: sequence number, frame delta and a digest of the samples
//   - Samples: the value of every variable at the end of a tick
//   - Failure events: activation and deactivation requests
//
// All ordering uses the tick sequence number, never timestamps, so two runs
// of the same configuration and frames produce identical traces apart from
// the session ID.
//
// # Database Configuration
//
// Every database enforces foreign keys and waits up to five seconds for
// locks. File databases also run in WAL mode with synchronous=NORMAL so
// "trace" commands can read while "run --trace" writes. The schema version
// lives in PRAGMA user_version and Open applies newer migrations.
//
// Samples can be filtered with a queryir.Query through QuerySamples.
//
// Tick digests are computed by ir.TickDigest using RFC 8785 canonical JSON
// and SHA-256 with domain separation.
package store
