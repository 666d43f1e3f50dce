package sidh

import (
	"math/big"

	"github.com/luxfi/isosign/pkg/math/fp2"
)

// affCurve is the Montgomery curve B·y² = x³ + A·x² + x with full (x, y)
// coordinates. The B coefficient distinguishes the curve from its
// quadratic twist; x-only code never needs it, the compressor does.
type affCurve struct {
	f    *fp2.Field
	a, b fp2.Element
}

// affPoint is an affine point or the point at infinity.
type affPoint struct {
	x, y fp2.Element
	inf  bool
}

func (c affCurve) infinity() affPoint { return affPoint{inf: true} }

func (c affCurve) neg(p affPoint) affPoint {
	if p.inf {
		return p
	}
	return affPoint{x: p.x, y: c.f.Neg(p.y)}
}

func (c affCurve) equal(p, q affPoint) bool {
	if p.inf || q.inf {
		return p.inf == q.inf
	}
	return c.f.Equal(p.x, q.x) && c.f.Equal(p.y, q.y)
}

// rhs evaluates x³ + A·x² + x.
func (c affCurve) rhs(x fp2.Element) fp2.Element {
	f := c.f
	return f.Mul(x, f.Add(f.Mul(x, f.Add(x, c.a)), f.One()))
}

// lift returns the point with the given x-coordinate, or false when x is
// on the quadratic twist of c. Which of ±y is returned is deterministic.
func (c affCurve) lift(x fp2.Element) (affPoint, bool) {
	f := c.f
	v := f.Mul(c.rhs(x), f.Inv(c.b))
	y, ok := f.Sqrt(v)
	if !ok {
		return affPoint{}, false
	}
	return affPoint{x: x, y: y}, true
}

func (c affCurve) dbl(p affPoint) affPoint {
	if p.inf {
		return p
	}
	f := c.f
	if f.IsZero(p.y) {
		return c.infinity()
	}
	x2 := f.Sqr(p.x)
	num := f.Add(f.Add(f.MulUint64(3, x2), f.MulUint64(2, f.Mul(c.a, p.x))), f.One())
	lam := f.Mul(num, f.Inv(f.MulUint64(2, f.Mul(c.b, p.y))))
	x3 := f.Sub(f.Sub(f.Mul(c.b, f.Sqr(lam)), c.a), f.Add(p.x, p.x))
	y3 := f.Sub(f.Mul(lam, f.Sub(p.x, x3)), p.y)
	return affPoint{x: x3, y: y3}
}

func (c affCurve) add(p, q affPoint) affPoint {
	if p.inf {
		return q
	}
	if q.inf {
		return p
	}
	f := c.f
	if f.Equal(p.x, q.x) {
		if f.Equal(p.y, f.Neg(q.y)) {
			return c.infinity()
		}
		return c.dbl(p)
	}
	lam := f.Mul(f.Sub(q.y, p.y), f.Inv(f.Sub(q.x, p.x)))
	x3 := f.Sub(f.Sub(f.Sub(f.Mul(c.b, f.Sqr(lam)), c.a), p.x), q.x)
	y3 := f.Sub(f.Mul(lam, f.Sub(p.x, x3)), p.y)
	return affPoint{x: x3, y: y3}
}

func (c affCurve) scalarMul(k *big.Int, p affPoint) affPoint {
	acc := c.infinity()
	for i := k.BitLen() - 1; i >= 0; i-- {
		acc = c.dbl(acc)
		if k.Bit(i) == 1 {
			acc = c.add(acc, p)
		}
	}
	return acc
}
