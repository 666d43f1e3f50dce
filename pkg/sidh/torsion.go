package sidh

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/isosign/pkg/hash"
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// torsionBasis is a basis (U, V) of the ℓᵉ-torsion of the curve with
// Montgomery coefficient A, together with the twist coefficient the
// rational torsion lives on and the x-coordinates the three-point ladder
// needs. Signer and verifier derive identical bases because the candidate
// stream is keyed by A alone.
type torsionBasis struct {
	crv  affCurve
	u, v affPoint

	xU, xV, xUV fp2.Element
}

const basisSearchLimit = 4096

// findTorsionBasis deterministically searches for a basis of the
// ℓᵉ-torsion of E_A. Candidates that land on the quadratic twist fail the
// order checks (the twist group (p−1)² has no 3-torsion and its 2-part
// has exponent 2, below 2^eA for eA ≥ 2), so the search
// also pins down the twist coefficient without an explicit curve-order
// computation.
func (p *Params) findTorsionBasis(a fp2.Element, ell int) (*torsionBasis, error) {
	f := p.fld

	var order *big.Int
	switch ell {
	case 2:
		order = p.orderA
	case 3:
		order = p.orderB
	default:
		return nil, fmt.Errorf("%w: unsupported torsion degree %d", ErrParams, ell)
	}
	cofactor := new(big.Int).Div(new(big.Int).Add(p.prime, big.NewInt(1)), order)
	ellBig := big.NewInt(int64(ell))
	anchorExp := new(big.Int).Div(order, ellBig) // ℓ^(e−1)

	stream := hash.NewReader("isosign/torsion/v1", []byte{byte(ell)}, f.Bytes(a))

	var basis *torsionBasis
	var uAnchor affPoint
	for i := 0; i < basisSearchLimit; i++ {
		x, err := p.sampleElement(stream)
		if err != nil {
			return nil, err
		}
		crv, pt, ok := p.liftOnEitherTwist(a, x)
		if !ok {
			continue
		}
		q := crv.scalarMul(cofactor, pt)
		if q.inf {
			continue
		}
		anchor := crv.scalarMul(anchorExp, q)
		if anchor.inf || !crv.scalarMul(ellBig, anchor).inf {
			continue
		}
		if basis == nil {
			basis = &torsionBasis{crv: crv, u: q}
			uAnchor = anchor
			continue
		}
		if !f.Equal(crv.b, basis.crv.b) {
			continue
		}
		if f.Equal(anchor.x, uAnchor.x) {
			continue
		}
		basis.v = q
		diff := basis.crv.add(basis.u, basis.crv.neg(q))
		basis.xU = basis.u.x
		basis.xV = q.x
		basis.xUV = diff.x
		return basis, nil
	}
	return nil, fmt.Errorf("%w: torsion basis search exhausted", ErrParams)
}

// sampleElement draws the next candidate x-coordinate from the stream.
func (p *Params) sampleElement(r io.Reader) (fp2.Element, error) {
	buf := make([]byte, 2*p.pbytes+16)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fp2.Element{}, fmt.Errorf("%w: candidate stream: %v", ErrParams, err)
	}
	half := len(buf) / 2
	a0 := new(big.Int).Mod(new(big.Int).SetBytes(buf[:half]), p.prime)
	a1 := new(big.Int).Mod(new(big.Int).SetBytes(buf[half:]), p.prime)
	return p.elementFromBig(a0, a1), nil
}

// liftOnEitherTwist places x on whichever of E_{A,1} and E_{A,γ} it is
// rational on. Exactly one twist admits it unless the right-hand side
// vanishes.
func (p *Params) liftOnEitherTwist(a, x fp2.Element) (affCurve, affPoint, bool) {
	f := p.fld
	crv := affCurve{f: f, a: a, b: f.One()}
	u := crv.rhs(x)
	if f.IsZero(u) {
		return affCurve{}, affPoint{}, false
	}
	if y, ok := f.Sqrt(u); ok {
		return crv, affPoint{x: x, y: y}, true
	}
	crv.b = p.gamma
	pt, ok := crv.lift(x)
	if !ok {
		return affCurve{}, affPoint{}, false
	}
	return crv, pt, true
}
