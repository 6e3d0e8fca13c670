package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digester computes a deterministic fingerprint of byte content. Two
// different byte sequences must practically never hash equal; identical
// bytes must always produce the identical digest across runs.
type Digester interface {
	Digest(data []byte) string
}

// SHA256Digester is the default content hash. A cheaper non-cryptographic
// hash would also satisfy the interface, at the cost of accepting a
// false-negative collision risk the rest of the pipeline does not account
// for.
type SHA256Digester struct{}

// NewSHA256Digester creates the default digester
func NewSHA256Digester() *SHA256Digester {
	return &SHA256Digester{}
}

// Digest returns the hex-encoded SHA-256 sum of data
func (d *SHA256Digester) Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
