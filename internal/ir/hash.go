package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes. The version suffix allows the
// document layout to change without colliding with older hashes.
const (
	DomainConfig = "a32nx/config/v1"
	DomainTick   = "a32nx/tick/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FailureEntry is the hashed form of a failure binding.
type FailureEntry struct {
	Code int
	Type string
}

// ConfigDocument is everything a build decided: wiring, failures, provided
// variables and rules in registration order.
type ConfigDocument struct {
	Prefix   string
	Wiring   Wiring
	Failures []FailureEntry
	Provided []ProvidedVariable
	Rules    []Rule
}

func (d ConfigDocument) canonical() map[string]any {
	failures := make([]any, len(d.Failures))
	for i, f := range d.Failures {
		failures[i] = map[string]any{"code": f.Code, "type": f.Type}
	}
	provided := make([]any, len(d.Provided))
	for i, p := range d.Provided {
		provided[i] = p.canonical()
	}
	rules := make([]any, len(d.Rules))
	for i, r := range d.Rules {
		rules[i] = r.canonical()
	}
	return map[string]any{
		"prefix":   d.Prefix,
		"wiring":   d.Wiring.canonical(),
		"failures": failures,
		"provided": provided,
		"rules":    rules,
	}
}

// MarshalCanonical returns the canonical JSON form of the document.
func (d ConfigDocument) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(d.canonical())
}

// ConfigHash computes the content hash of a build configuration.
// Two builds with the same bindings, provided variables and rules (in the same
// order, with the same transform names) hash identically.
func ConfigHash(d ConfigDocument) (string, error) {
	canonical, err := d.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// TickDigest hashes a tick's recorded samples, keyed by variable string.
func TickDigest(seq int64, samples map[string]float64) (string, error) {
	values := make(map[string]any, len(samples))
	for k, v := range samples {
		values[k] = v
	}
	canonical, err := MarshalCanonical(map[string]any{
		"seq":     seq,
		"samples": values,
	})
	if err != nil {
		return "", fmt.Errorf("TickDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTick, canonical), nil
}

// MustConfigHash is like ConfigHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustConfigHash(d ConfigDocument) string {
	h, err := ConfigHash(d)
	if err != nil {
		panic(err)
	}
	return h
}
