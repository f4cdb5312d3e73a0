// Package idgen mints session identifiers. IDs are generated on the device
// so a session is addressable before any remote has seen it.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// SessionPrefix marks an ID as a training session.
const SessionPrefix = "ses-"

// alphabet is lowercase-only so IDs survive case-insensitive filesystems
// and are easy to type on the CLI.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of random characters after the prefix.
const Length = 16

// Func produces a new unique ID. Stores accept one so tests can supply
// deterministic IDs.
type Func func() (string, error)

// NewSessionID returns a fresh session ID.
func NewSessionID() (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return SessionPrefix + id, nil
}

// Sequence returns a Func yielding prefix1, prefix2, ... for tests.
func Sequence(prefix string) Func {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s%d", prefix, n), nil
	}
}

// LooksLikeSessionID reports whether s has the shape NewSessionID produces.
// It is a cheap pre-check for CLI arguments, not proof that a session exists.
func LooksLikeSessionID(s string) bool {
	rest, ok := strings.CutPrefix(s, SessionPrefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
