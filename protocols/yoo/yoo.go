// Package yoo implements the Yoo–Azarderakhsh–Jalali–Jao–Soukharev
// post-quantum signature scheme: the De Feo–Jao–Plût identification
// Σ-protocol over supersingular isogenies, made non-interactive with the
// Fiat–Shamir transform and repeated over many independent rounds.
//
// Each round commits to an ephemeral 2-power isogeny E → E/⟨R⟩, and the
// challenge bit selects which half of the round is opened: the scalar R
// itself, or the image ψ(S) of the long-term secret kernel generator on
// E/⟨R⟩. Rounds are independent, so signing and verification fan out over
// a worker pool and amortize field inversions with batched Montgomery
// inversion.
package yoo

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/isosign/pkg/hash"
	"github.com/luxfi/isosign/pkg/sidh"
)

// PrivateKey is the long-term B-side scalar, little-endian.
type PrivateKey []byte

// Options selects the execution mode of a Sign or Verify call.
type Options struct {
	// Batched routes every per-round field inversion through the shared
	// Montgomery batches. In batched mode the session runs one worker per
	// round: a batch only completes once every participating round has
	// submitted, so fewer workers than rounds would deadlock.
	Batched bool

	// Compressed stores each response point as a scalar plus one bit
	// instead of a projective point.
	Compressed bool

	// Workers is the pool size for unbatched calls. Zero selects one
	// worker per round.
	Workers int

	// Rand is the randomness source for signing. Nil selects crypto/rand.
	// All per-round randomness is drawn sequentially before workers
	// start, so the signature does not depend on the worker count.
	Rand io.Reader
}

func (o *Options) workers(rounds int) int {
	if o.Batched || o.Workers <= 0 || o.Workers > rounds {
		return rounds
	}
	return o.Workers
}

func (o *Options) rand() io.Reader {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.Reader
}

// GenerateKey produces a long-term key pair for the scheme.
func GenerateKey(p *sidh.Params, rng io.Reader) (PrivateKey, *sidh.PublicKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	sk, pk, err := sidh.KeyGenB(p, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("yoo: %w", err)
	}
	return PrivateKey(sk), pk, nil
}

// Signature is one full run of the non-interactive proof. Exactly one of
// PsiS and (CompPsiS, CompBits) is populated, selected by Compressed. The
// challenge hash is not stored; the verifier reconstructs it from the
// commitments and the response digests.
type Signature struct {
	Randoms      [][]byte
	Commitments1 [][]byte
	Commitments2 [][]byte
	HashResp     []byte
	PsiS         [][]byte
	CompPsiS     [][]byte
	CompBits     []byte
	Compressed   bool
}

// MarshalBinary encodes the signature with cbor.
func (s *Signature) MarshalBinary() ([]byte, error) {
	// a method-less copy of the type keeps cbor from calling MarshalBinary
	// again on the same value
	type wire Signature
	return cbor.Marshal((*wire)(s))
}

// UnmarshalBinary decodes a signature produced by MarshalBinary. The
// result still has to pass the shape checks of Verify.
func (s *Signature) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, s)
}

const respHashLen = 32

// challenge recomputes the Fiat–Shamir challenge: the commitments of
// every round, then the response digest table, squeezed to rounds/8
// bytes.
func challenge(p *sidh.Params, sig *Signature) []byte {
	parts := make([][]byte, 0, 2*p.NumRounds()+1)
	parts = append(parts, sig.Commitments1...)
	parts = append(parts, sig.Commitments2...)
	parts = append(parts, sig.HashResp)
	out := make([]byte, p.ChallengeBytes())
	hash.Shake(out, parts...)
	return out
}

// challengeBit extracts round r's bit: bit r%8 of byte r/8.
func challengeBit(c []byte, r int) byte {
	return (c[r/8] >> (r % 8)) & 1
}
