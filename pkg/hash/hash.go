// Package hash wraps the Keccak sponge behind the two shapes the signature
// core needs: fixed 32-byte response digests and variable-length squeezes
// for the Fiat–Shamir challenge and deterministic derivations.
package hash

import (
	"io"

	"golang.org/x/crypto/sha3"
)

// Shake fills out with the SHAKE-256 digest of the concatenation of the
// inputs. The output length is len(out).
func Shake(out []byte, in ...[]byte) {
	h := sha3.NewShake256()
	for _, b := range in {
		_, _ = h.Write(b)
	}
	_, _ = h.Read(out)
}

// Sum256 returns the 32-byte SHAKE-256 digest of the concatenated inputs.
func Sum256(in ...[]byte) []byte {
	out := make([]byte, 32)
	Shake(out, in...)
	return out
}

// NewReader returns an unbounded deterministic byte stream keyed by a
// domain string and a seed. It backs the torsion-basis candidate search and
// the seeded randomness used by tests.
func NewReader(domain string, seed ...[]byte) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(domain))
	for _, b := range seed {
		_, _ = h.Write(b)
	}
	return h
}
