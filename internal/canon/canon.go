// Package canon provides deterministic serialization and hashing for
// all content-addressed governance state. Values are marshaled to
// JSON, transformed to RFC 8785 canonical form, and digested with
// SHA-256. Identical logical content always yields the identical hash.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// HashPrefix identifies the digest algorithm in every stored hash.
const HashPrefix = "sha256:"

// JSON returns the RFC 8785 canonical JSON encoding of v.
// Map keys are sorted by UTF-8 bytes and number formatting is
// normalized, so the output is byte-stable across processes.
func JSON(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canon: transform: %w", err)
	}
	return canonical, nil
}

// Hash returns "sha256:<hex>" over the canonical JSON form of v.
func Hash(v any) (string, error) {
	b, err := JSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns "sha256:<hex>" of raw bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(h[:])
}

// ValidHash reports whether s looks like a digest this package produced.
func ValidHash(s string) bool {
	if len(s) != len(HashPrefix)+64 {
		return false
	}
	if s[:len(HashPrefix)] != HashPrefix {
		return false
	}
	for _, c := range s[len(HashPrefix):] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
