// Package idempotency derives deterministic keys used to collapse duplicate
// operation attempts at the persistence and payment layers.
package idempotency

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const checkoutPrefix = "chk_"

// CheckoutKey derives the key for one checkout attempt of a buyer on a tier.
// The same triple always yields the same key.
func CheckoutKey(buyerID, tierID, attemptID string) string {
	return checkoutPrefix + Derive("checkout", buyerID, tierID, attemptID)
}

// Derive hashes the parts with length prefixes so that ("ab","c") and
// ("a","bc") never collide.
func Derive(parts ...string) string {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsCheckoutKey reports whether k has the shape produced by CheckoutKey.
func IsCheckoutKey(k string) bool {
	if !strings.HasPrefix(k, checkoutPrefix) {
		return false
	}
	raw := strings.TrimPrefix(k, checkoutPrefix)
	if len(raw) != blake2b.Size256*2 {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil
}
