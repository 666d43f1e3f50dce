package sidh

import (
	"fmt"

	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// SecretAgreementA computes the shared secret from the A side: the
// j-invariant of E_pub/⟨[m]φ(P_A) + φ(Q_A)⟩. Only the low eA bits of m are
// used. With a non-nil batch the final inversion is submitted exactly once
// on every path.
func SecretAgreementA(p *Params, m []byte, pub *PublicKey, b *batch.Batch) (fp2.Element, error) {
	f := p.fld
	kernel := ladder3pt(f, pub.XQ, pub.XP, pub.XR, m, p.eA, pub.A)
	a, c, _ := iso2Chain(f, pub.A, f.One(), kernel, p.eA, nil)
	num, den := jInvariantNumDen(f, a, c)
	invs, err := invertSimul(b, f, den)
	if err != nil {
		return fp2.Element{}, fmt.Errorf("secret agreement A: %w", err)
	}
	return f.Mul(num, invs[0]), nil
}

// SecretAgreementB computes the shared secret from the B side: the
// j-invariant of E_pub/⟨K⟩ where K = [sk]φ(P_B) + φ(Q_B) when kernel is
// nil, or the explicitly supplied kernel point otherwise. When the kernel
// is derived from sk, the ladder output — the generator ψ(S) of the
// isogeny kernel — is returned as the second value; with an explicit
// kernel it is nil. With a non-nil batch the final inversion is submitted
// exactly once on every path.
func SecretAgreementB(p *Params, sk []byte, pub *PublicKey, kernel *ProjPoint, b *batch.Batch) (fp2.Element, *ProjPoint, error) {
	f := p.fld
	var k ProjPoint
	var psiS *ProjPoint
	if kernel != nil {
		k = *kernel
	} else {
		k = ladder3pt(f, pub.XQ, pub.XP, pub.XR, sk, p.nbitsB, pub.A)
		psiS = &ProjPoint{X: k.X, Z: k.Z}
	}
	a, c, _ := iso3Chain(f, pub.A, f.One(), k, p.eB, nil)
	num, den := jInvariantNumDen(f, a, c)
	invs, err := invertSimul(b, f, den)
	if err != nil {
		return fp2.Element{}, nil, fmt.Errorf("secret agreement B: %w", err)
	}
	return f.Mul(num, invs[0]), psiS, nil
}
