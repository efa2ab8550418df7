// Package ir provides the value types shared by every layer of the bridge.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Variables, phases and wiring
// bindings are plain comparable values usable as map keys.
//
// Key constraints:
//   - Variable names and units are NFC normalized at construction
//   - Rules are immutable once appended to a builder
//   - Canonical JSON (for configuration hashes and golden traces) rejects
//     non-finite numbers
package ir
