// Package idgen mints the random identifiers the service hands out.
//
// Stored transactions get "tx_" IDs when the caller supplies none,
// recorded wallet checks get "chk_" IDs, and requests arriving without
// an X-Request-ID header get a bare hex ID.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// WithPrefix returns prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	return prefix + Hex(12)
}

// Hex returns a random hex string covering numBytes of entropy.
func Hex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
