// Package fp2 implements arithmetic in the quadratic extension Fp² = Fp(i),
// i² = −1, over a runtime-chosen prime p ≡ 3 (mod 4). All coefficient
// arithmetic is delegated to saferith.
package fp2

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// Element is an element a0 + a1·i of Fp². Elements are immutable: Field
// operations never modify their inputs, so a result may share a
// coefficient with an input (Conj does) without harm.
type Element struct {
	A0, A1 *saferith.Nat
}

// Field carries the modulus and the exponents used for inversion and square
// roots. A single Field value is shared by all goroutines of a signing or
// verification session; it is read-only after construction.
type Field struct {
	p      *saferith.Modulus
	pBig   *big.Int
	pBytes int

	invE  *saferith.Nat // p−2
	sqrtE *saferith.Nat // (p+1)/4
	half  *saferith.Nat // (p+1)/2, the inverse of 2
}

// NewField constructs the field for the prime p. It requires p ≡ 3 (mod 4)
// so that square roots in Fp are a single exponentiation.
func NewField(p *big.Int) (*Field, error) {
	if p.Bit(0) != 1 || p.Bit(1) != 1 {
		return nil, errors.New("fp2: prime must be 3 mod 4")
	}
	one := big.NewInt(1)
	pPlus1 := new(big.Int).Add(p, one)
	f := &Field{
		p:      saferith.ModulusFromBytes(p.Bytes()),
		pBig:   new(big.Int).Set(p),
		pBytes: (p.BitLen() + 7) / 8,
		invE:   natFromBig(new(big.Int).Sub(p, big.NewInt(2))),
		sqrtE:  natFromBig(new(big.Int).Rsh(pPlus1, 2)),
		half:   natFromBig(new(big.Int).Rsh(pPlus1, 1)),
	}
	return f, nil
}

func natFromBig(x *big.Int) *saferith.Nat {
	return new(saferith.Nat).SetBytes(x.Bytes())
}

// Size returns the byte length of one Fp coefficient; an encoded Element
// occupies 2·Size() bytes.
func (f *Field) Size() int { return f.pBytes }

// Prime returns a copy of the field characteristic.
func (f *Field) Prime() *big.Int { return new(big.Int).Set(f.pBig) }

func (f *Field) fpNew(v uint64) *saferith.Nat {
	n := new(saferith.Nat).SetUint64(v)
	return n.Mod(n, f.p)
}

func (f *Field) fpAdd(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModAdd(x, y, f.p)
}

func (f *Field) fpSub(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModAdd(x, f.fpNeg(y), f.p)
}

func (f *Field) fpMul(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModMul(x, y, f.p)
}

func (f *Field) fpNeg(x *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModNeg(x, f.p)
}

func (f *Field) fpExp(x, e *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).Exp(x, e, f.p)
}

// fpInv computes x⁻¹ as x^(p−2); it maps zero to zero.
func (f *Field) fpInv(x *saferith.Nat) *saferith.Nat {
	return f.fpExp(x, f.invE)
}

func (f *Field) fpIsZero(x *saferith.Nat) bool {
	return x.Eq(f.fpNew(0)) == 1
}

// Zero returns the additive identity.
func (f *Field) Zero() Element { return Element{A0: f.fpNew(0), A1: f.fpNew(0)} }

// One returns the multiplicative identity.
func (f *Field) One() Element { return Element{A0: f.fpNew(1), A1: f.fpNew(0)} }

// FromUint64 returns the element a0 + a1·i for small coefficients.
func (f *Field) FromUint64(a0, a1 uint64) Element {
	return Element{A0: f.fpNew(a0), A1: f.fpNew(a1)}
}

// Add returns x + y.
func (f *Field) Add(x, y Element) Element {
	return Element{A0: f.fpAdd(x.A0, y.A0), A1: f.fpAdd(x.A1, y.A1)}
}

// Sub returns x − y.
func (f *Field) Sub(x, y Element) Element {
	return Element{A0: f.fpSub(x.A0, y.A0), A1: f.fpSub(x.A1, y.A1)}
}

// Neg returns −x.
func (f *Field) Neg(x Element) Element {
	return Element{A0: f.fpNeg(x.A0), A1: f.fpNeg(x.A1)}
}

// Mul returns x · y.
func (f *Field) Mul(x, y Element) Element {
	t0 := f.fpMul(x.A0, y.A0)
	t1 := f.fpMul(x.A1, y.A1)
	t2 := f.fpMul(x.A0, y.A1)
	t3 := f.fpMul(x.A1, y.A0)
	return Element{A0: f.fpSub(t0, t1), A1: f.fpAdd(t2, t3)}
}

// Sqr returns x².
func (f *Field) Sqr(x Element) Element { return f.Mul(x, x) }

// MulUint64 returns c · x for a small scalar c.
func (f *Field) MulUint64(c uint64, x Element) Element {
	cn := f.fpNew(c)
	return Element{A0: f.fpMul(cn, x.A0), A1: f.fpMul(cn, x.A1)}
}

// Conj returns the conjugate a0 − a1·i. The real coefficient is shared
// with x; Elements are never mutated so sharing is safe.
func (f *Field) Conj(x Element) Element {
	return Element{A0: x.A0, A1: f.fpNeg(x.A1)}
}

// norm returns a0² + a1² ∈ Fp.
func (f *Field) norm(x Element) *saferith.Nat {
	return f.fpAdd(f.fpMul(x.A0, x.A0), f.fpMul(x.A1, x.A1))
}

// Inv returns x⁻¹ = conj(x)/norm(x). The zero element maps to zero.
func (f *Field) Inv(x Element) Element {
	ni := f.fpInv(f.norm(x))
	return Element{A0: f.fpMul(x.A0, ni), A1: f.fpMul(f.fpNeg(x.A1), ni)}
}

// IsZero reports whether x is the additive identity.
func (f *Field) IsZero(x Element) bool {
	return f.fpIsZero(x.A0) && f.fpIsZero(x.A1)
}

// Equal reports whether x and y represent the same field element.
func (f *Field) Equal(x, y Element) bool {
	return x.A0.Eq(y.A0) == 1 && x.A1.Eq(y.A1) == 1
}

// Sqrt returns a square root of x and true, or an undefined element and
// false when x is not a square. Which of the two roots is returned is
// unspecified but deterministic.
func (f *Field) Sqrt(x Element) (Element, bool) {
	if f.IsZero(x) {
		return f.Zero(), true
	}
	if f.fpIsZero(x.A1) {
		// x lies in Fp: its root is in Fp, or is purely imaginary.
		r := f.fpExp(x.A0, f.sqrtE)
		if f.fpMul(r, r).Eq(x.A0) == 1 {
			return Element{A0: r, A1: f.fpNew(0)}, true
		}
		nega := f.fpNeg(x.A0)
		w := f.fpExp(nega, f.sqrtE)
		if f.fpMul(w, w).Eq(nega) == 1 {
			return Element{A0: f.fpNew(0), A1: w}, true
		}
		return f.Zero(), false
	}
	// Write x = u + v·i, v ≠ 0. With α² = u² + v², the root is
	// x0 + x1·i where x0² = (u ± α)/2 and x1 = v/(2·x0).
	n := f.norm(x)
	alpha := f.fpExp(n, f.sqrtE)
	if f.fpMul(alpha, alpha).Eq(n) != 1 {
		return f.Zero(), false
	}
	delta := f.fpMul(f.fpAdd(x.A0, alpha), f.half)
	x0 := f.fpExp(delta, f.sqrtE)
	if f.fpMul(x0, x0).Eq(delta) != 1 {
		delta = f.fpMul(f.fpSub(x.A0, alpha), f.half)
		x0 = f.fpExp(delta, f.sqrtE)
		if f.fpMul(x0, x0).Eq(delta) != 1 {
			return f.Zero(), false
		}
	}
	x1 := f.fpMul(x.A1, f.fpInv(f.fpAdd(x0, x0)))
	cand := Element{A0: x0, A1: x1}
	if !f.Equal(f.Sqr(cand), x) {
		return f.Zero(), false
	}
	return cand, true
}

// Bytes encodes x as a0 ‖ a1, each coefficient little-endian and
// zero-padded to Size() bytes.
func (f *Field) Bytes(x Element) []byte {
	out := make([]byte, 2*f.pBytes)
	f.putFp(out[:f.pBytes], x.A0)
	f.putFp(out[f.pBytes:], x.A1)
	return out
}

func (f *Field) putFp(dst []byte, x *saferith.Nat) {
	be := x.Bytes()
	// big-endian, possibly shorter than pBytes; mirror into little-endian dst
	for i := 0; i < len(be) && i < len(dst); i++ {
		dst[i] = be[len(be)-1-i]
	}
}

// SetBytes decodes an element previously encoded with Bytes.
func (f *Field) SetBytes(b []byte) (Element, error) {
	if len(b) != 2*f.pBytes {
		return Element{}, fmt.Errorf("fp2: encoding must be %d bytes, got %d", 2*f.pBytes, len(b))
	}
	a0, err := f.getFp(b[:f.pBytes])
	if err != nil {
		return Element{}, err
	}
	a1, err := f.getFp(b[f.pBytes:])
	if err != nil {
		return Element{}, err
	}
	return Element{A0: a0, A1: a1}, nil
}

func (f *Field) getFp(src []byte) (*saferith.Nat, error) {
	be := make([]byte, len(src))
	for i := range src {
		be[len(src)-1-i] = src[i]
	}
	n := new(saferith.Nat).SetBytes(be)
	if new(big.Int).SetBytes(be).Cmp(f.pBig) >= 0 {
		return nil, errors.New("fp2: coefficient out of range")
	}
	return n.Mod(n, f.p), nil
}
