// Package room generates and validates meeting room identifiers.
//
// Identifiers are short, URL-safe and human-typable. Uniqueness is
// probabilistic only (no registry, no I/O): the hosted conferencing
// service is the source of truth for room existence, and knowing an id
// does not grant access when the lobby is enabled.
package room

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	segmentLength = 5
	segmentCount  = 2
	separator     = "-"
	alphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewID returns an identifier of two independent base-36 segments, e.g.
// "k3f9a-x07qp".
func NewID() string {
	segments := make([]string, segmentCount)
	for i := range segments {
		segments[i] = randomSegment(segmentLength)
	}
	return strings.Join(segments, separator)
}

// Validate reports whether id is usable as a room identifier when
// joining. Any non-empty trimmed string is accepted: users paste ids
// from invitations that this system did not generate.
func Validate(id string) bool {
	return strings.TrimSpace(id) != ""
}

func randomSegment(length int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is
			// broken, at which point nothing else works either.
			panic("room: random source unavailable: " + err.Error())
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
