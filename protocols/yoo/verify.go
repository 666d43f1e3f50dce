package yoo

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/hash"
	"github.com/luxfi/isosign/pkg/math/fp2"
	"github.com/luxfi/isosign/pkg/pool"
	"github.com/luxfi/isosign/pkg/sidh"
)

// verifySession owns the state one Verify call shares between its
// workers. All signature material is parsed before dispatch so round
// bodies cannot fail before reaching their batch submissions, which keeps
// the batch capacities — sized from the challenge — exact.
type verifySession struct {
	params *sidh.Params
	pk     *sidh.PublicKey
	sig    *Signature
	cHash  []byte

	comm1 []fp2.Element
	psiS  []sidh.ProjPoint

	batchA, batchB, batchC, batchD *batch.Batch
}

// Verify recomputes the challenge, replays every round against its
// challenge bit and accepts only if all rounds check out. A nil return
// means the signature is valid; every verification failure wraps
// ErrInvalidSignature. An internal worker-pool error (a round counter out
// of range) is returned without it.
func Verify(p *sidh.Params, pk *sidh.PublicKey, sig *Signature, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	if pk == nil || sig == nil {
		return fmt.Errorf("%w: missing input", ErrInvalidSignature)
	}

	v := &verifySession{params: p, pk: pk, sig: sig}
	if err := v.parse(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	v.cHash = challenge(p, sig)

	rounds := p.NumRounds()
	ones := 0
	for _, b := range v.cHash {
		ones += bits.OnesCount8(b)
	}
	zeros := rounds - ones

	if opts.Batched {
		f := p.Field()
		v.batchA = batch.New(f, zeros)
		v.batchB = batch.New(f, zeros)
		v.batchC = batch.New(f, ones)
		if sig.Compressed {
			v.batchD = batch.New(f, ones)
		}
	}

	results, err := pool.NewPool(opts.workers(rounds)).Parallelize(rounds, v.round)
	if err != nil {
		return fmt.Errorf("yoo: %w", err)
	}
	if err := pool.FirstError(results); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}

// parse checks the signature's shape against the parameter set and
// pre-decodes everything the round bodies consume.
func (v *verifySession) parse() error {
	p := v.params
	f := p.Field()
	sig := v.sig
	rounds := p.NumRounds()
	fpLen := 2 * p.FpBytes()

	if len(sig.Randoms) != rounds || len(sig.Commitments1) != rounds || len(sig.Commitments2) != rounds {
		return fmt.Errorf("%w: want %d rounds", ErrMalformed, rounds)
	}
	if len(sig.HashResp) != 2*rounds*respHashLen {
		return fmt.Errorf("%w: response digest table", ErrMalformed)
	}
	if sig.Compressed {
		if len(sig.PsiS) != 0 || len(sig.CompPsiS) != rounds || len(sig.CompBits) != rounds {
			return fmt.Errorf("%w: compressed responses", ErrMalformed)
		}
	} else {
		if len(sig.CompPsiS) != 0 || len(sig.CompBits) != 0 || len(sig.PsiS) != rounds {
			return fmt.Errorf("%w: responses", ErrMalformed)
		}
		v.psiS = make([]sidh.ProjPoint, rounds)
	}

	v.comm1 = make([]fp2.Element, rounds)
	for r := 0; r < rounds; r++ {
		if err := p.ValidateScalarA(sig.Randoms[r]); err != nil {
			return fmt.Errorf("%w: round %d: %v", ErrMalformed, r, err)
		}
		if len(sig.Commitments2[r]) != fpLen {
			return fmt.Errorf("%w: round %d commitment", ErrMalformed, r)
		}
		el, err := f.SetBytes(sig.Commitments1[r])
		if err != nil {
			return fmt.Errorf("%w: round %d commitment: %v", ErrMalformed, r, err)
		}
		v.comm1[r] = el

		if sig.Compressed {
			if err := p.ValidateScalarB(sig.CompPsiS[r]); err != nil {
				return fmt.Errorf("%w: round %d response: %v", ErrMalformed, r, err)
			}
			if sig.CompBits[r] > 1 {
				return fmt.Errorf("%w: round %d disambiguation bit", ErrMalformed, r)
			}
		} else {
			if len(sig.PsiS[r]) != 2*fpLen {
				return fmt.Errorf("%w: round %d response", ErrMalformed, r)
			}
			x, err := f.SetBytes(sig.PsiS[r][:fpLen])
			if err != nil {
				return fmt.Errorf("%w: round %d response: %v", ErrMalformed, r, err)
			}
			z, err := f.SetBytes(sig.PsiS[r][fpLen:])
			if err != nil {
				return fmt.Errorf("%w: round %d response: %v", ErrMalformed, r, err)
			}
			v.psiS[r] = sidh.ProjPoint{X: x, Z: z}
		}

		// Both responses travel with the signature, so both digest table
		// entries are checked, binding the challenge to what was sent.
		resp := sig.PsiS
		if sig.Compressed {
			resp = sig.CompPsiS
		}
		if !bytes.Equal(sig.HashResp[(2*r)*respHashLen:(2*r+1)*respHashLen], hash.Sum256(sig.Randoms[r])) {
			return fmt.Errorf("round %d scalar digest: %w", r, ErrCommitmentMismatch)
		}
		if !bytes.Equal(sig.HashResp[(2*r+1)*respHashLen:(2*r+2)*respHashLen], hash.Sum256(resp[r])) {
			return fmt.Errorf("round %d response digest: %w", r, ErrCommitmentMismatch)
		}
	}
	return nil
}

func (v *verifySession) round(r int) error {
	if challengeBit(v.cHash, r) == 0 {
		return v.roundBit0(r)
	}
	return v.roundBit1(r)
}

// roundBit0 opens the scalar: R must be even, must reproduce the
// committed ephemeral curve, and must reproduce the committed shared
// secret against the long-term public key. The round keeps computing past
// a failed check so its batch submissions still happen.
func (v *verifySession) roundBit0(r int) error {
	p := v.params
	f := p.Field()
	sig := v.sig

	var roundErr error
	if sig.Randoms[r][0]&1 == 1 {
		roundErr = fmt.Errorf("round scalar is odd: %w", ErrOrderCheck)
	}

	tempPub, err := sidh.KeyGenA(p, sig.Randoms[r], v.batchA)
	if err != nil {
		feedBatch(f, v.batchB)
		return firstOf(roundErr, err)
	}
	if !bytes.Equal(f.Bytes(tempPub.A), sig.Commitments1[r]) {
		roundErr = firstOf(roundErr, fmt.Errorf("ephemeral curve: %w", ErrCommitmentMismatch))
	}

	shared, err := sidh.SecretAgreementA(p, sig.Randoms[r], v.pk, v.batchB)
	if err != nil {
		return firstOf(roundErr, err)
	}
	if !bytes.Equal(f.Bytes(shared), sig.Commitments2[r]) {
		roundErr = firstOf(roundErr, fmt.Errorf("shared secret: %w", ErrCommitmentMismatch))
	}
	return roundErr
}

// roundBit1 opens psi(S): the (decompressed) point must survive eB−1
// triplings and, used as an explicit kernel on the committed curve, must
// reproduce the committed shared secret.
func (v *verifySession) roundBit1(r int) error {
	p := v.params
	f := p.Field()
	sig := v.sig
	a := v.comm1[r]

	var kernel sidh.ProjPoint
	if sig.Compressed {
		pt, err := sidh.DecompressPsiS(p, sig.CompPsiS[r], sig.CompBits[r], a, v.batchD)
		if err != nil {
			feedBatch(f, v.batchC)
			return err
		}
		kernel = pt
	} else {
		kernel = v.psiS[r]
	}

	var roundErr error
	one := f.One()
	t := kernel
	for i := 0; i < p.EB()-1; i++ {
		t = sidh.XTPL(f, t, a, one)
		if f.IsZero(t.Z) {
			roundErr = fmt.Errorf("psi(S) has order dividing 3^%d: %w", i+1, ErrOrderCheck)
			break
		}
	}

	tempPub := &sidh.PublicKey{A: a, XP: f.Zero(), XQ: f.Zero(), XR: f.Zero()}
	shared, _, err := sidh.SecretAgreementB(p, nil, tempPub, &kernel, v.batchC)
	if err != nil {
		return firstOf(roundErr, err)
	}
	if !bytes.Equal(f.Bytes(shared), sig.Commitments2[r]) {
		roundErr = firstOf(roundErr, fmt.Errorf("shared secret: %w", ErrCommitmentMismatch))
	}
	return roundErr
}

// firstOf keeps the earliest failure of a round.
func firstOf(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// feedBatch keeps a batch's declared capacity satisfied when a round
// bails out before the primitive that would have submitted.
func feedBatch(f *fp2.Field, b *batch.Batch) {
	if b != nil {
		b.Result(b.Submit(f.One()))
	}
}
