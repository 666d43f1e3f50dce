package sidh

import (
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// CompressPsiS expresses the response point ψ(S) on the curve with
// coefficient a as a single scalar s mod 3^eB plus one bit: the kernel
// subgroup ⟨ψ(S)⟩ equals ⟨[s]U + V⟩ (bit 0) or ⟨U + [s]V⟩ (bit 1) on the
// deterministic torsion basis (U, V) derived from a. The bit records which
// coordinate of the half-Pohlig–Hellman decomposition was normalized away.
// The x-only sign ambiguity ψ(S) → −ψ(S) negates both decomposition
// coordinates and leaves s unchanged, so either lift compresses
// identically.
//
// With a non-nil batch the normalization inversion is submitted exactly
// once on every path.
func CompressPsiS(p *Params, psiS ProjPoint, a fp2.Element, b *batch.Batch) ([]byte, byte, error) {
	f := p.fld

	zBad := f.IsZero(psiS.Z)
	sub := psiS.Z
	if zBad {
		sub = f.One()
	}
	iz := batch.Invert(b, f, sub)
	if zBad {
		return nil, 0, fmt.Errorf("compress: %w", ErrInvalidPoint)
	}
	x := f.Mul(psiS.X, iz)

	basis, err := p.findTorsionBasis(a, 3)
	if err != nil {
		return nil, 0, fmt.Errorf("compress: %w", err)
	}
	pt, ok := basis.crv.lift(x)
	if !ok {
		return nil, 0, fmt.Errorf("compress: point is not rational on the torsion curve: %w", ErrDecomposition)
	}

	aBig, bBig, err := p.threeDlog(basis, pt)
	if err != nil {
		return nil, 0, err
	}

	three := big.NewInt(3)
	var s *saferith.Nat
	var bit byte
	switch {
	case new(big.Int).Mod(bBig, three).Sign() != 0:
		s = p.scalarQuotient(aBig, bBig)
		bit = 0
	case new(big.Int).Mod(aBig, three).Sign() != 0:
		s = p.scalarQuotient(bBig, aBig)
		bit = 1
	default:
		// both coordinates divisible by 3: the point is not a generator
		return nil, 0, fmt.Errorf("compress: %w", ErrDecomposition)
	}
	return bigToScalar(new(big.Int).SetBytes(s.Bytes()), p.obytesB), bit, nil
}

// scalarQuotient returns num·den⁻¹ mod 3^eB.
func (p *Params) scalarQuotient(num, den *big.Int) *saferith.Nat {
	n := new(saferith.Nat).SetBytes(num.Bytes())
	d := new(saferith.Nat).SetBytes(den.Bytes())
	di := new(saferith.Nat).ModInverse(d, p.orderBMod)
	return new(saferith.Nat).ModMul(n, di, p.orderBMod)
}

// DecompressPsiS reconstructs a generator of the compressed kernel
// subgroup as a normalized projective point (x : 1). The caller has
// validated the scalar width and that bit ∈ {0, 1}. With a non-nil batch
// the normalization inversion is submitted exactly once on every path.
func DecompressPsiS(p *Params, comp []byte, bit byte, a fp2.Element, b *batch.Batch) (ProjPoint, error) {
	f := p.fld

	basis, err := p.findTorsionBasis(a, 3)
	if err != nil {
		// keep the batch fed so sibling rounds still complete
		_ = batch.Invert(b, f, f.One())
		return ProjPoint{}, fmt.Errorf("decompress: %w", err)
	}

	var k ProjPoint
	switch bit {
	case 0:
		k = ladder3pt(f, basis.xV, basis.xU, basis.xUV, comp, p.nbitsB, a)
	case 1:
		k = ladder3pt(f, basis.xU, basis.xV, basis.xUV, comp, p.nbitsB, a)
	default:
		_ = batch.Invert(b, f, f.One())
		return ProjPoint{}, fmt.Errorf("decompress: disambiguation bit out of range: %w", ErrScalar)
	}

	zBad := f.IsZero(k.Z)
	sub := k.Z
	if zBad {
		sub = f.One()
	}
	iz := batch.Invert(b, f, sub)
	if zBad {
		return ProjPoint{}, fmt.Errorf("decompress: %w", ErrInvalidPoint)
	}
	return ProjPoint{X: f.Mul(k.X, iz), Z: f.One()}, nil
}

// threeDlog solves P = [a]U + [b]V in the 3^eB-torsion, one base-3 digit
// per level.
func (p *Params) threeDlog(basis *torsionBasis, pt affPoint) (*big.Int, *big.Int, error) {
	crv := basis.crv
	e := p.eB

	pow3 := make([]*big.Int, e)
	pow3[0] = big.NewInt(1)
	for i := 1; i < e; i++ {
		pow3[i] = new(big.Int).Mul(pow3[i-1], big.NewInt(3))
	}

	u3 := crv.scalarMul(pow3[e-1], basis.u)
	v3 := crv.scalarMul(pow3[e-1], basis.v)

	// span of the order-3 anchors
	var table [3][3]affPoint
	for al := 0; al < 3; al++ {
		for be := 0; be < 3; be++ {
			acc := crv.infinity()
			for i := 0; i < al; i++ {
				acc = crv.add(acc, u3)
			}
			for i := 0; i < be; i++ {
				acc = crv.add(acc, v3)
			}
			table[al][be] = acc
		}
	}

	a := new(big.Int)
	b := new(big.Int)
	ui, vi := basis.u, basis.v
	q := pt
	for i := 0; i < e; i++ {
		t := crv.scalarMul(pow3[e-1-i], q)
		al, be, found := -1, -1, false
		for ca := 0; ca < 3 && !found; ca++ {
			for cb := 0; cb < 3 && !found; cb++ {
				if crv.equal(t, table[ca][cb]) {
					al, be, found = ca, cb, true
				}
			}
		}
		if !found {
			return nil, nil, fmt.Errorf("dlog level %d: %w", i, ErrDecomposition)
		}
		if al > 0 {
			q = crv.add(q, crv.neg(crv.scalarMul(big.NewInt(int64(al)), ui)))
			a.Add(a, new(big.Int).Mul(big.NewInt(int64(al)), pow3[i]))
		}
		if be > 0 {
			q = crv.add(q, crv.neg(crv.scalarMul(big.NewInt(int64(be)), vi)))
			b.Add(b, new(big.Int).Mul(big.NewInt(int64(be)), pow3[i]))
		}
		ui = crv.scalarMul(big.NewInt(3), ui)
		vi = crv.scalarMul(big.NewInt(3), vi)
	}
	if !q.inf {
		return nil, nil, fmt.Errorf("dlog residue: %w", ErrDecomposition)
	}
	return a, b, nil
}
