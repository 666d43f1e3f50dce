package yoo

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/hash"
	"github.com/luxfi/isosign/pkg/pool"
	"github.com/luxfi/isosign/pkg/sidh"
)

const deriveScalarContext = "github.com/luxfi/isosign/yoo 2024-11-02T14:05+00:00 Derive round scalar key"

// signSession owns everything one Sign call shares between its workers:
// the per-round output slots of the signature and the Montgomery batches.
// Each round slot has exactly one writer, so the signature itself needs no
// locking; the batches carry their own.
type signSession struct {
	params *sidh.Params
	sk     PrivateKey
	sig    *Signature

	hedgeKey []byte
	hedges   [][]byte

	batchA, batchB, batchC *batch.Batch
}

// Sign runs the commit phase over all rounds, derives the Fiat–Shamir
// challenge and assembles the signature. It fails only on missing
// randomness or an internal error; a valid key pair always signs.
func Sign(p *sidh.Params, sk PrivateKey, pk *sidh.PublicKey, opts *Options) (*Signature, error) {
	if opts == nil {
		opts = &Options{}
	}
	if pk == nil {
		return nil, fmt.Errorf("yoo: missing public key")
	}
	rounds := p.NumRounds()

	s := &signSession{
		params: p,
		sk:     sk,
		sig: &Signature{
			Randoms:      make([][]byte, rounds),
			Commitments1: make([][]byte, rounds),
			Commitments2: make([][]byte, rounds),
			Compressed:   opts.Compressed,
		},
	}
	if opts.Compressed {
		s.sig.CompPsiS = make([][]byte, rounds)
		s.sig.CompBits = make([]byte, rounds)
	} else {
		s.sig.PsiS = make([][]byte, rounds)
	}

	// Hedged scalar derivation in the round1 style: a key derived from
	// the long-term secret, mixed per round with fresh randomness. The
	// randomness is drawn sequentially here so the resulting signature is
	// independent of how rounds land on workers.
	s.hedgeKey = make([]byte, 32)
	blake3.DeriveKey(deriveScalarContext, sk, s.hedgeKey)
	s.hedges = make([][]byte, rounds)
	rng := opts.rand()
	for r := 0; r < rounds; r++ {
		s.hedges[r] = make([]byte, 32)
		if _, err := io.ReadFull(rng, s.hedges[r]); err != nil {
			return nil, fmt.Errorf("yoo: reading randomness: %w", err)
		}
	}

	if opts.Batched {
		f := p.Field()
		s.batchA = batch.New(f, rounds)
		s.batchB = batch.New(f, rounds)
		if opts.Compressed {
			s.batchC = batch.New(f, rounds)
		}
	}

	results, err := pool.NewPool(opts.workers(rounds)).Parallelize(rounds, s.round)
	if err != nil {
		return nil, fmt.Errorf("yoo: %w", err)
	}
	if err := pool.FirstError(results); err != nil {
		// a primitive failed on supposedly valid inputs; the signature
		// would be malformed, so surface it instead
		return nil, fmt.Errorf("yoo: signing failed internally: %w", err)
	}

	s.hashResponses()
	return s.sig, nil
}

// round is the per-round body: ephemeral key, both commitments, and the
// response point, compressed or not.
func (s *signSession) round(r int) error {
	p := s.params
	f := p.Field()
	sig := s.sig

	scalar := s.roundScalar(r)
	sig.Randoms[r] = scalar

	tempPub, err := sidh.KeyGenA(p, scalar, s.batchA)
	if err != nil {
		feedBatch(f, s.batchB)
		if sig.Compressed {
			feedBatch(f, s.batchC)
		}
		return err
	}
	sig.Commitments1[r] = f.Bytes(tempPub.A)

	// The B-side agreement both commits to the shared j-invariant and
	// yields ψ(S), the response for challenge bit 1.
	shared, psiS, err := sidh.SecretAgreementB(p, s.sk, tempPub, nil, s.batchB)
	if err != nil {
		if sig.Compressed {
			feedBatch(f, s.batchC)
		}
		return err
	}
	sig.Commitments2[r] = f.Bytes(shared)

	if sig.Compressed {
		comp, bit, err := sidh.CompressPsiS(p, *psiS, tempPub.A, s.batchC)
		if err != nil {
			return err
		}
		sig.CompPsiS[r] = comp
		sig.CompBits[r] = bit
	} else {
		sig.PsiS[r] = append(f.Bytes(psiS.X), f.Bytes(psiS.Z)...)
	}
	return nil
}

// roundScalar derives round r's ephemeral scalar from the hedge key and
// the pre-drawn randomness.
func (s *signSession) roundScalar(r int) []byte {
	h, _ := blake3.NewKeyed(s.hedgeKey)
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], uint64(r))
	_, _ = h.Write(idx[:])
	_, _ = h.Write(s.hedges[r])
	buf := make([]byte, s.params.ObytesA()+16)
	_, _ = h.Digest().Read(buf)
	return s.params.NormalizeScalarA(buf)
}

// hashResponses fills the per-round digest table: Keccak of the round
// scalar and of the byte image of the response.
func (s *signSession) hashResponses() {
	sig := s.sig
	rounds := s.params.NumRounds()
	sig.HashResp = make([]byte, 2*rounds*respHashLen)
	for r := 0; r < rounds; r++ {
		copy(sig.HashResp[(2*r)*respHashLen:], hash.Sum256(sig.Randoms[r]))
		resp := sig.PsiS
		if sig.Compressed {
			resp = sig.CompPsiS
		}
		copy(sig.HashResp[(2*r+1)*respHashLen:], hash.Sum256(resp[r]))
	}
}
