package ident

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// Access codes stay short enough to type on a phone and avoid characters
// that are easy to misread (0/O, 1/I/L).
const codeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

const codeLength = 4

// New returns an opaque unique identifier, used for player and host ids.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AccessCode returns a short lower-case code suitable for human entry.
// Codes are random, not sequential; uniqueness among active games is the
// caller's responsibility.
func AccessCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived code rather than panic in the join path.
		return strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))[:codeLength]
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf)
}
