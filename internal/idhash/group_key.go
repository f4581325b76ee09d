// Package idhash derives deterministic identities for derived records.
package idhash

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/text/width"
)

// NormalizeIdentity canonicalizes a product identity field before key
// derivation and matching: Unicode width folding (the CRM data mixes
// half-width and full-width forms), whitespace trim, lower-casing.
// Distinct post-normalization strings stay distinct.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

// ComputeGroupKey computes a deterministic product group key.
// Formula: base58(SHA256(normalize(name) + NUL + normalize(spec)))
// The NUL separator keeps (name, spec) pairs unambiguous.
// Stable across recomputation given the same inputs; safe in URLs.
func ComputeGroupKey(name, spec string) string {
	data := NormalizeIdentity(name) + "\x00" + NormalizeIdentity(spec)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
