package sidh

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// PublicKey is an SIDH public key: the affine Montgomery coefficient of
// the image curve followed by the images of the opposite side's torsion
// basis, x(φP), x(φQ) and x(φ(P−Q)).
type PublicKey struct {
	A, XP, XQ, XR fp2.Element
}

// invertSimul inverts every element of xs using one field inversion,
// routed through b when non-nil. It submits to the batch exactly once on
// every path, including the error path, so batch capacities stay exact.
func invertSimul(b *batch.Batch, f *fp2.Field, xs ...fp2.Element) ([]fp2.Element, error) {
	prod := f.One()
	for _, x := range xs {
		prod = f.Mul(prod, x)
	}
	bad := f.IsZero(prod)
	sub := prod
	if bad {
		sub = f.One()
	}
	inv := batch.Invert(b, f, sub)
	if bad {
		return nil, ErrInvalidPoint
	}
	out := make([]fp2.Element, len(xs))
	for i := range xs {
		t := inv
		for j := range xs {
			if j != i {
				t = f.Mul(t, xs[j])
			}
		}
		out[i] = t
	}
	return out, nil
}

// KeyGenA computes the A-side public key for the kernel [m]P_A + Q_A: the
// coefficient of E0/⟨kernel⟩ and the pushed-through 3-torsion basis. Only
// the low eA bits of the little-endian scalar m are used. When b is
// non-nil the single final inversion is routed through it; KeyGenA then
// submits exactly once regardless of outcome.
func KeyGenA(p *Params, m []byte, b *batch.Batch) (*PublicKey, error) {
	f := p.fld
	one := f.One()

	kernel := ladder3pt(f, p.XQA, p.XPA, p.XRA, m, p.eA, f.Zero())
	a, c, imgs := iso2Chain(f, f.Zero(), one, kernel, p.eA, []ProjPoint{
		{X: p.XPB, Z: one},
		{X: p.XQB, Z: one},
		{X: p.XRB, Z: one},
	})

	invs, err := invertSimul(b, f, c, imgs[0].Z, imgs[1].Z, imgs[2].Z)
	if err != nil {
		return nil, fmt.Errorf("keygen A: %w", err)
	}
	return &PublicKey{
		A:  f.Mul(a, invs[0]),
		XP: f.Mul(imgs[0].X, invs[1]),
		XQ: f.Mul(imgs[1].X, invs[2]),
		XR: f.Mul(imgs[2].X, invs[3]),
	}, nil
}

// KeyGenB generates a long-term B-side key pair: a uniform scalar
// sk ∈ [1, 3^eB) and the public key of E0/⟨[sk]P_B + Q_B⟩ with the
// 2-torsion basis pushed through.
func KeyGenB(p *Params, rng io.Reader) ([]byte, *PublicKey, error) {
	buf := make([]byte, 2*p.obytesB+16)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return nil, nil, fmt.Errorf("keygen B: reading randomness: %w", err)
	}
	skBig := new(big.Int).SetBytes(buf)
	skBig.Mod(skBig, new(big.Int).Sub(p.orderB, big.NewInt(1)))
	skBig.Add(skBig, big.NewInt(1))
	sk := bigToScalar(skBig, p.obytesB)

	f := p.fld
	one := f.One()
	kernel := ladder3pt(f, p.XQB, p.XPB, p.XRB, sk, p.nbitsB, f.Zero())
	a, c, imgs := iso3Chain(f, f.Zero(), one, kernel, p.eB, []ProjPoint{
		{X: p.XPA, Z: one},
		{X: p.XQA, Z: one},
		{X: p.XRA, Z: one},
	})

	invs, err := invertSimul(nil, f, c, imgs[0].Z, imgs[1].Z, imgs[2].Z)
	if err != nil {
		return nil, nil, fmt.Errorf("keygen B: %w", err)
	}
	pk := &PublicKey{
		A:  f.Mul(a, invs[0]),
		XP: f.Mul(imgs[0].X, invs[1]),
		XQ: f.Mul(imgs[1].X, invs[2]),
		XR: f.Mul(imgs[2].X, invs[3]),
	}
	return sk, pk, nil
}

// EncodePublicKey serializes pk as four Fp² elements.
func (p *Params) EncodePublicKey(pk *PublicKey) []byte {
	f := p.fld
	out := make([]byte, 0, 8*p.pbytes)
	out = append(out, f.Bytes(pk.A)...)
	out = append(out, f.Bytes(pk.XP)...)
	out = append(out, f.Bytes(pk.XQ)...)
	out = append(out, f.Bytes(pk.XR)...)
	return out
}

// DecodePublicKey parses the output of EncodePublicKey.
func (p *Params) DecodePublicKey(data []byte) (*PublicKey, error) {
	f := p.fld
	n := 2 * p.pbytes
	if len(data) != 4*n {
		return nil, fmt.Errorf("sidh: public key must be %d bytes, got %d", 4*n, len(data))
	}
	els := make([]fp2.Element, 4)
	for i := range els {
		el, err := f.SetBytes(data[i*n : (i+1)*n])
		if err != nil {
			return nil, err
		}
		els[i] = el
	}
	return &PublicKey{A: els[0], XP: els[1], XQ: els[2], XR: els[3]}, nil
}
