package sidh

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// Params fixes one SIDH instance: the prime p = 2^eA · 3^eB · f − 1, the
// starting curve E0: y² = x³ + x, deterministically derived torsion bases
// for both sides, and the round count of the signature scheme built on
// top. A Params value is immutable after construction and safe for
// concurrent use.
type Params struct {
	Name string

	fld    *fp2.Field
	prime  *big.Int
	eA, eB int
	cof    int
	rounds int

	orderA, orderB   *big.Int
	orderBMod        *saferith.Modulus
	pbytes           int
	obytesA, obytesB int
	nbitsB           int

	gamma fp2.Element // canonical Fp² nonsquare, the twist coefficient

	// x-coordinates of the torsion bases on E0, including the third
	// ladder input x(P−Q).
	XPA, XQA, XRA fp2.Element
	XPB, XQB, XRB fp2.Element
}

// NewParams derives the full parameter set for p = 2^eA · 3^eB · f − 1.
// rounds is the number of ZKP rounds and must be a multiple of 8 so the
// challenge packs into whole bytes.
func NewParams(name string, eA, eB, f, rounds int) (*Params, error) {
	if rounds <= 0 || rounds%8 != 0 {
		return nil, fmt.Errorf("%w: round count %d is not a positive multiple of 8", ErrParams, rounds)
	}
	if eA < 2 || eB < 2 || f < 1 {
		return nil, fmt.Errorf("%w: exponents too small", ErrParams)
	}

	orderA := new(big.Int).Lsh(big.NewInt(1), uint(eA))
	orderB := new(big.Int).Exp(big.NewInt(3), big.NewInt(int64(eB)), nil)
	prime := new(big.Int).Mul(orderA, orderB)
	prime.Mul(prime, big.NewInt(int64(f)))
	prime.Sub(prime, big.NewInt(1))
	if !prime.ProbablyPrime(32) {
		return nil, fmt.Errorf("%w: 2^%d·3^%d·%d − 1 is not prime", ErrParams, eA, eB, f)
	}

	fld, err := fp2.NewField(prime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParams, err)
	}

	p := &Params{
		Name:      name,
		fld:       fld,
		prime:     prime,
		eA:        eA,
		eB:        eB,
		cof:       f,
		rounds:    rounds,
		orderA:    orderA,
		orderB:    orderB,
		orderBMod: saferith.ModulusFromBytes(orderB.Bytes()),
		pbytes:    fld.Size(),
		obytesA:   (eA + 7) / 8,
		obytesB:   (orderB.BitLen() + 7) / 8,
		nbitsB:    orderB.BitLen(),
	}
	p.gamma = p.findNonSquare()

	if err := p.deriveBases(); err != nil {
		return nil, err
	}
	return p, nil
}

// findNonSquare returns the first nonsquare in the stream i, 1+i, 2+i, …
func (p *Params) findNonSquare() fp2.Element {
	f := p.fld
	for c := uint64(0); ; c++ {
		cand := f.FromUint64(c, 1)
		if _, ok := f.Sqrt(cand); !ok {
			return cand
		}
	}
}

// deriveBases fixes the 2^eA and 3^eB torsion bases of E0. The A-side
// basis additionally guarantees that [2^(eA−1)]Q_A is not the point
// (0, 0): kernels [m]P_A + Q_A with even m then never quotient through
// (0, 0), which keeps the plain 2-isogeny step total.
func (p *Params) deriveBases() error {
	f := p.fld
	zero := f.Zero()

	bA, err := p.findTorsionBasis(zero, 2)
	if err != nil {
		return err
	}
	halfExp := new(big.Int).Rsh(p.orderA, 1)
	u, v := bA.u, bA.v
	if f.IsZero(bA.crv.scalarMul(halfExp, v).x) {
		// (0,0) sits under Q_A: swap the roles. Independence of the basis
		// means it cannot also sit under P_A.
		u, v = v, u
	}
	p.XPA = u.x
	p.XQA = v.x
	p.XRA = bA.crv.add(u, bA.crv.neg(v)).x

	bB, err := p.findTorsionBasis(zero, 3)
	if err != nil {
		return err
	}
	p.XPB = bB.xU
	p.XQB = bB.xV
	p.XRB = bB.xUV
	return nil
}

// Field returns the Fp² arithmetic context.
func (p *Params) Field() *fp2.Field { return p.fld }

// Prime returns a copy of the field characteristic.
func (p *Params) Prime() *big.Int { return new(big.Int).Set(p.prime) }

// NumRounds returns the round count of the signature scheme.
func (p *Params) NumRounds() int { return p.rounds }

// ChallengeBytes returns NumRounds/8, the challenge hash length.
func (p *Params) ChallengeBytes() int { return p.rounds / 8 }

// EB returns the 3-power exponent; the verifier's order check triples a
// response point EB−1 times.
func (p *Params) EB() int { return p.eB }

// FpBytes returns the byte width of one Fp coefficient; an Fp² element
// occupies twice this.
func (p *Params) FpBytes() int { return p.pbytes }

// ObytesA and ObytesB return the encoded widths of A- and B-side scalars.
func (p *Params) ObytesA() int { return p.obytesA }
func (p *Params) ObytesB() int { return p.obytesB }

func (p *Params) elementFromBig(a0, a1 *big.Int) fp2.Element {
	buf := make([]byte, 2*p.pbytes)
	copyLE(buf[:p.pbytes], a0.Bytes())
	copyLE(buf[p.pbytes:], a1.Bytes())
	el, err := p.fld.SetBytes(buf)
	if err != nil {
		// both coefficients were reduced mod p by the caller
		panic(err)
	}
	return el
}

// copyLE writes a big-endian byte string into dst little-endian.
func copyLE(dst, be []byte) {
	for i := 0; i < len(be) && i < len(dst); i++ {
		dst[i] = be[len(be)-1-i]
	}
}

// scalarToBig decodes a little-endian scalar.
func scalarToBig(le []byte) *big.Int {
	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}
	return new(big.Int).SetBytes(be)
}

// bigToScalar encodes v little-endian into width bytes.
func bigToScalar(v *big.Int, width int) []byte {
	out := make([]byte, width)
	copyLE(out, v.Bytes())
	return out
}

// NormalizeScalarA folds an arbitrary seed buffer into a valid A-side
// round scalar: even, nonzero, below 2^eA.
func (p *Params) NormalizeScalarA(seed []byte) []byte {
	v := scalarToBig(seed)
	v.Mod(v, p.orderA)
	v.SetBit(v, 0, 0)
	if v.Sign() == 0 {
		v.SetInt64(2)
	}
	return bigToScalar(v, p.obytesA)
}

// ValidateScalarA validates the encoding of an A-side scalar from a
// signature: correct width and within range. Parity is the verifier's
// own explicit check, not enforced here.
func (p *Params) ValidateScalarA(s []byte) error {
	if len(s) != p.obytesA {
		return fmt.Errorf("%w: A-side scalar must be %d bytes", ErrScalar, p.obytesA)
	}
	if scalarToBig(s).Cmp(p.orderA) >= 0 {
		return fmt.Errorf("%w: A-side scalar out of range", ErrScalar)
	}
	return nil
}

// ValidateScalarB validates the encoding of a B-side scalar: correct
// width and reduced mod 3^eB.
func (p *Params) ValidateScalarB(s []byte) error {
	if len(s) != p.obytesB {
		return fmt.Errorf("%w: B-side scalar must be %d bytes", ErrScalar, p.obytesB)
	}
	if scalarToBig(s).Cmp(p.orderB) >= 0 {
		return fmt.Errorf("%w: B-side scalar out of range", ErrScalar)
	}
	return nil
}

var p431 = sync.OnceValue(func() *Params {
	p, err := NewParams("p431", 4, 3, 1, 8)
	if err != nil {
		panic(err)
	}
	return p
})

// P431 returns the toy parameter set over p = 2⁴·3³ − 1 = 431 with eight
// ZKP rounds. It is meant for tests and development, not security.
func P431() *Params { return p431() }

var p751 = sync.OnceValue(func() *Params {
	p, err := NewParams("p751", 372, 239, 1, 248)
	if err != nil {
		panic(err)
	}
	return p
})

// P751 returns the production-shape parameter set over the 751-bit prime
// 2³⁷²·3²³⁹ − 1 with 248 rounds. Deriving the torsion bases is expensive;
// the work happens once on first use.
func P751() *Params { return p751() }
