package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainComp is the domain prefix for comprehension content hashes.
// The version suffix enables future algorithm migration.
const DomainComp = "pcs/comp/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content-addressed identity of a comprehension.
// The hash is stable across processes and serialization forms: two
// nodes with the same canonical JSON share a hash.
func Hash(c *Comprehension) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("ir.Hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainComp, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the node is known to be valid.
func MustHash(c *Comprehension) string {
	h, err := Hash(c)
	if err != nil {
		panic(err)
	}
	return h
}
