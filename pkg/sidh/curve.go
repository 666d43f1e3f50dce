package sidh

import (
	"github.com/luxfi/isosign/pkg/math/fp2"
)

// ProjPoint is an x-only point (X : Z) on a Montgomery curve
// y² = x³ + (A/C)x² + x. The point at infinity has Z = 0.
type ProjPoint struct {
	X, Z fp2.Element
}

// curveCtx caches the doubling constants A+2C and 4C of a projective
// Montgomery coefficient (A : C).
type curveCtx struct {
	f         *fp2.Field
	a24p, c24 fp2.Element
}

func newCurveCtx(f *fp2.Field, a, c fp2.Element) curveCtx {
	twoC := f.Add(c, c)
	return curveCtx{f: f, a24p: f.Add(a, twoC), c24: f.Add(twoC, twoC)}
}

func (cc curveCtx) xDbl(p ProjPoint) ProjPoint {
	f := cc.f
	t0 := f.Sqr(f.Sub(p.X, p.Z))
	t1 := f.Sqr(f.Add(p.X, p.Z))
	t2 := f.Sub(t1, t0)
	x2 := f.Mul(cc.c24, f.Mul(t0, t1))
	z2 := f.Mul(t2, f.Add(f.Mul(cc.c24, t0), f.Mul(cc.a24p, t2)))
	return ProjPoint{X: x2, Z: z2}
}

// xAdd is differential addition: given P, Q and x(P−Q) it returns x(P+Q).
func xAdd(f *fp2.Field, p, q, diff ProjPoint) ProjPoint {
	t0 := f.Mul(f.Add(p.X, p.Z), f.Sub(q.X, q.Z))
	t1 := f.Mul(f.Sub(p.X, p.Z), f.Add(q.X, q.Z))
	x := f.Mul(diff.Z, f.Sqr(f.Add(t0, t1)))
	z := f.Mul(diff.X, f.Sqr(f.Sub(t0, t1)))
	return ProjPoint{X: x, Z: z}
}

func (cc curveCtx) xTpl(p ProjPoint) ProjPoint {
	return xAdd(cc.f, cc.xDbl(p), p, p)
}

// XTPL triples the projective point P on the curve with projective
// coefficient (A : C). It is the primitive behind the verifier's order
// check on the response point.
func XTPL(f *fp2.Field, p ProjPoint, a, c fp2.Element) ProjPoint {
	return newCurveCtx(f, a, c).xTpl(p)
}

// ladder3pt computes x(P + [m]Q) from x(P), x(Q) and x(P−Q) using the
// three-point Montgomery ladder. The scalar is little-endian; exactly
// nbits bits are processed so the work is independent of the value.
func ladder3pt(f *fp2.Field, xP, xQ, xPQ fp2.Element, m []byte, nbits int, a fp2.Element) ProjPoint {
	cc := newCurveCtx(f, a, f.One())
	one := f.One()
	r0 := ProjPoint{X: xQ, Z: one}
	r1 := ProjPoint{X: xP, Z: one}
	r2 := ProjPoint{X: xPQ, Z: one}
	for i := 0; i < nbits; i++ {
		bit := byte(0)
		if i/8 < len(m) {
			bit = (m[i/8] >> (i % 8)) & 1
		}
		if bit == 1 {
			r1 = xAdd(f, r1, r0, r2)
		} else {
			r2 = xAdd(f, r2, r0, r1)
		}
		r0 = cc.xDbl(r0)
	}
	return r1
}

// get2Isog returns the projective coefficient (A' : C') of the codomain of
// the 2-isogeny with kernel ⟨T⟩, T = (X2 : Z2) of order 2 with X2 ≠ 0:
// A' = 2(Z2² − 2X2²), C' = Z2².
func get2Isog(f *fp2.Field, t ProjPoint) (fp2.Element, fp2.Element) {
	x2 := f.Sqr(t.X)
	z2 := f.Sqr(t.Z)
	a := f.Add(f.Sub(z2, f.Add(x2, x2)), f.Sub(z2, f.Add(x2, x2)))
	return a, z2
}

// eval2Isog pushes P through the 2-isogeny with kernel ⟨T⟩:
// x' = x(x·x2 − 1)/(x − x2).
func eval2Isog(f *fp2.Field, p, t ProjPoint) ProjPoint {
	num := f.Mul(p.X, f.Sub(f.Mul(p.X, t.X), f.Mul(p.Z, t.Z)))
	den := f.Mul(p.Z, f.Sub(f.Mul(p.X, t.Z), f.Mul(p.Z, t.X)))
	return ProjPoint{X: num, Z: den}
}

// get3Isog returns the codomain coefficient of the 3-isogeny with kernel
// ⟨T⟩, T of order 3: affine A' = (A·x3 − 6x3² + 6)·x3.
func get3Isog(f *fp2.Field, t ProjPoint, a, c fp2.Element) (fp2.Element, fp2.Element) {
	x2 := f.Sqr(t.X)
	z2 := f.Sqr(t.Z)
	inner := f.Add(f.Mul(a, f.Mul(t.X, t.Z)), f.MulUint64(6, f.Mul(c, f.Sub(z2, x2))))
	aOut := f.Mul(t.X, inner)
	cOut := f.Mul(c, f.Mul(t.Z, z2))
	return aOut, cOut
}

// eval3Isog pushes P through the 3-isogeny with kernel ⟨T⟩:
// x' = x(x·x3 − 1)²/(x − x3)².
func eval3Isog(f *fp2.Field, p, t ProjPoint) ProjPoint {
	num := f.Mul(p.X, f.Sqr(f.Sub(f.Mul(p.X, t.X), f.Mul(p.Z, t.Z))))
	den := f.Mul(p.Z, f.Sqr(f.Sub(f.Mul(p.X, t.Z), f.Mul(p.Z, t.X))))
	return ProjPoint{X: num, Z: den}
}

// iso2Chain quotients by the order-2^e subgroup generated by k, pushing the
// listed points through every step. It returns the final coefficient
// (A' : C') and the images.
func iso2Chain(f *fp2.Field, a, c fp2.Element, k ProjPoint, e int, push []ProjPoint) (fp2.Element, fp2.Element, []ProjPoint) {
	images := make([]ProjPoint, len(push))
	copy(images, push)
	for ord := e; ord > 0; ord-- {
		cc := newCurveCtx(f, a, c)
		t := k
		for j := 0; j < ord-1; j++ {
			t = cc.xDbl(t)
		}
		a, c = get2Isog(f, t)
		if ord > 1 {
			k = eval2Isog(f, k, t)
		}
		for i := range images {
			images[i] = eval2Isog(f, images[i], t)
		}
	}
	return a, c, images
}

// iso3Chain is the 3-power analogue of iso2Chain.
func iso3Chain(f *fp2.Field, a, c fp2.Element, k ProjPoint, e int, push []ProjPoint) (fp2.Element, fp2.Element, []ProjPoint) {
	images := make([]ProjPoint, len(push))
	copy(images, push)
	for ord := e; ord > 0; ord-- {
		cc := newCurveCtx(f, a, c)
		t := k
		for j := 0; j < ord-1; j++ {
			t = cc.xTpl(t)
		}
		a, c = get3Isog(f, t, a, c)
		if ord > 1 {
			k = eval3Isog(f, k, t)
		}
		for i := range images {
			images[i] = eval3Isog(f, images[i], t)
		}
	}
	return a, c, images
}

// jInvariantNumDen returns the fraction j = num/den of the curve with
// projective coefficient (A : C): j = 256(A² − 3C²)³ / (C⁴(A² − 4C²)).
// The caller performs the division so the inversion can be batched.
func jInvariantNumDen(f *fp2.Field, a, c fp2.Element) (fp2.Element, fp2.Element) {
	a2 := f.Sqr(a)
	c2 := f.Sqr(c)
	t := f.Sub(a2, f.MulUint64(3, c2))
	num := f.MulUint64(256, f.Mul(t, f.Mul(t, t)))
	den := f.Mul(f.Sqr(c2), f.Sub(a2, f.MulUint64(4, c2)))
	return num, den
}
