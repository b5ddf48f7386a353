package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel   = "strata/model/v1"
	DomainPlan    = "strata/plan/v1"
	DomainResults = "strata/results/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonicalize renders any JSON-marshalable value as canonical JSON by
// round-tripping it through Value.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	val, err := UnmarshalValue(raw)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(val)
}

// Hash returns the domain-separated hash of v's canonical JSON.
func Hash(domain string, v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ModelHash identifies a compiled model. Two models with the same hash
// simulate identically.
func ModelHash(m *ModelSpec) (string, error) {
	return Hash(DomainModel, m)
}

// PlanHash identifies a plan.
func PlanHash(p *PlanSpec) (string, error) {
	return Hash(DomainPlan, p)
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
