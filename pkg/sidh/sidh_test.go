package sidh

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/isosign/pkg/batch"
	"github.com/luxfi/isosign/pkg/hash"
)

// equalProj compares two x-only points projectively.
func equalProj(t *testing.T, p *Params, a, b ProjPoint) bool {
	t.Helper()
	f := p.Field()
	return f.Equal(f.Mul(a.X, b.Z), f.Mul(b.X, a.Z))
}

func TestP431Basics(t *testing.T) {
	p := P431()
	require.Equal(t, int64(431), p.Prime().Int64())
	require.Equal(t, 8, p.NumRounds())
	require.Equal(t, 1, p.ChallengeBytes())
	require.Equal(t, 3, p.EB())
	require.Equal(t, 2, p.FpBytes())
}

func TestNewParamsRejectsBadShapes(t *testing.T) {
	_, err := NewParams("bad-rounds", 4, 3, 1, 7)
	require.ErrorIs(t, err, ErrParams)
	_, err = NewParams("not-prime", 4, 4, 1, 8) // 2⁴·3⁴−1 = 1295 = 5·7·37
	require.ErrorIs(t, err, ErrParams)
}

func TestJInvariantOfStartingCurve(t *testing.T) {
	p := P431()
	f := p.Field()
	num, den := jInvariantNumDen(f, f.Zero(), f.One())
	j := f.Mul(num, f.Inv(den))
	// j(E0) = 1728, reduced mod 431
	require.True(t, f.Equal(j, f.FromUint64(1728%431, 0)))
}

func TestTorsionBasisDeterministicAndWellFormed(t *testing.T) {
	p := P431()
	f := p.Field()
	zero := f.Zero()

	b1, err := p.findTorsionBasis(zero, 3)
	require.NoError(t, err)
	b2, err := p.findTorsionBasis(zero, 3)
	require.NoError(t, err)
	require.True(t, f.Equal(b1.xU, b2.xU))
	require.True(t, f.Equal(b1.xV, b2.xV))
	require.True(t, f.Equal(b1.xUV, b2.xUV))

	// exact order 3^eB and independence
	nine := big.NewInt(9)
	three := big.NewInt(3)
	uAnchor := b1.crv.scalarMul(nine, b1.u)
	vAnchor := b1.crv.scalarMul(nine, b1.v)
	require.False(t, uAnchor.inf)
	require.False(t, vAnchor.inf)
	require.True(t, b1.crv.scalarMul(three, uAnchor).inf)
	require.True(t, b1.crv.scalarMul(three, vAnchor).inf)
	require.False(t, f.Equal(uAnchor.x, vAnchor.x))
}

func TestLadderMatchesAffineArithmetic(t *testing.T) {
	p := P431()
	f := p.Field()
	b, err := p.findTorsionBasis(f.Zero(), 3)
	require.NoError(t, err)

	for m := 0; m <= 8; m++ {
		// U + [m]V, affine
		want := b.crv.add(b.u, b.crv.scalarMul(big.NewInt(int64(m)), b.v))
		require.False(t, want.inf)
		got := ladder3pt(f, b.xU, b.xV, b.xUV, []byte{byte(m)}, p.nbitsB, f.Zero())
		require.False(t, f.IsZero(got.Z), "m=%d", m)
		require.True(t, f.Equal(f.Mul(got.X, f.Inv(got.Z)), want.x), "m=%d", m)
	}
}

func TestTripleMatchesAffineArithmetic(t *testing.T) {
	p := P431()
	f := p.Field()
	b, err := p.findTorsionBasis(f.Zero(), 3)
	require.NoError(t, err)

	want := b.crv.scalarMul(big.NewInt(3), b.u)
	got := XTPL(f, ProjPoint{X: b.xU, Z: f.One()}, f.Zero(), f.One())
	require.False(t, want.inf)
	require.False(t, f.IsZero(got.Z))
	require.True(t, f.Equal(f.Mul(got.X, f.Inv(got.Z)), want.x))
}

func TestKeyExchangeAgrees(t *testing.T) {
	p := P431()
	f := p.Field()
	for _, seed := range []string{"alpha", "beta", "gamma"} {
		skB, pkB, err := KeyGenB(p, hash.NewReader("sidh/test", []byte(seed)))
		require.NoError(t, err)
		for _, m := range []byte{2, 6, 10, 14} {
			mA := p.NormalizeScalarA([]byte{m})
			pkA, err := KeyGenA(p, mA, nil)
			require.NoError(t, err)

			ssA, err := SecretAgreementA(p, mA, pkB, nil)
			require.NoError(t, err)
			ssB, psiS, err := SecretAgreementB(p, skB, pkA, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, psiS)
			require.True(t, f.Equal(ssA, ssB), "seed=%s m=%d", seed, m)
		}
	}
}

func TestExplicitKernelReproducesAgreement(t *testing.T) {
	p := P431()
	f := p.Field()
	skB, _, err := KeyGenB(p, hash.NewReader("sidh/test", []byte("kernel")))
	require.NoError(t, err)
	pkA, err := KeyGenA(p, p.NormalizeScalarA([]byte{6}), nil)
	require.NoError(t, err)

	ssB, psiS, err := SecretAgreementB(p, skB, pkA, nil, nil)
	require.NoError(t, err)

	// the verifier's view: only the curve coefficient survives
	stub := &PublicKey{A: pkA.A, XP: f.Zero(), XQ: f.Zero(), XR: f.Zero()}
	ss2, none, err := SecretAgreementB(p, nil, stub, psiS, nil)
	require.NoError(t, err)
	require.Nil(t, none)
	require.True(t, f.Equal(ssB, ss2))
}

func TestPsiSHasFullOrder(t *testing.T) {
	p := P431()
	f := p.Field()
	skB, _, err := KeyGenB(p, hash.NewReader("sidh/test", []byte("order")))
	require.NoError(t, err)
	pkA, err := KeyGenA(p, p.NormalizeScalarA([]byte{10}), nil)
	require.NoError(t, err)
	_, psiS, err := SecretAgreementB(p, skB, pkA, nil, nil)
	require.NoError(t, err)

	tp := *psiS
	for i := 0; i < p.EB()-1; i++ {
		tp = XTPL(f, tp, pkA.A, f.One())
		require.False(t, f.IsZero(tp.Z), "collapsed after %d triplings", i+1)
	}
	tp = XTPL(f, tp, pkA.A, f.One())
	require.True(t, f.IsZero(tp.Z), "psi(S) must have order exactly 3^eB")
}

func TestKeyGenABatchedMatchesPlain(t *testing.T) {
	p := P431()
	f := p.Field()
	m := p.NormalizeScalarA([]byte{14})

	plain, err := KeyGenA(p, m, nil)
	require.NoError(t, err)
	b := batch.New(f, 1)
	batched, err := KeyGenA(p, m, b)
	require.NoError(t, err)

	require.True(t, f.Equal(plain.A, batched.A))
	require.True(t, f.Equal(plain.XP, batched.XP))
	require.True(t, f.Equal(plain.XQ, batched.XQ))
	require.True(t, f.Equal(plain.XR, batched.XR))
}

func TestAgreementsBatchedMatchPlain(t *testing.T) {
	p := P431()
	f := p.Field()
	skB, pkB, err := KeyGenB(p, hash.NewReader("sidh/test", []byte("batched")))
	require.NoError(t, err)
	m := p.NormalizeScalarA([]byte{6})
	pkA, err := KeyGenA(p, m, nil)
	require.NoError(t, err)

	plainA, err := SecretAgreementA(p, m, pkB, nil)
	require.NoError(t, err)
	gotA, err := SecretAgreementA(p, m, pkB, batch.New(f, 1))
	require.NoError(t, err)
	require.True(t, f.Equal(plainA, gotA))

	plainB, _, err := SecretAgreementB(p, skB, pkA, nil, nil)
	require.NoError(t, err)
	gotB, _, err := SecretAgreementB(p, skB, pkA, nil, batch.New(f, 1))
	require.NoError(t, err)
	require.True(t, f.Equal(plainB, gotB))
}

func TestCompressRoundTrip(t *testing.T) {
	p := P431()
	f := p.Field()
	for _, seed := range []string{"c1", "c2"} {
		skB, _, err := KeyGenB(p, hash.NewReader("sidh/test", []byte(seed)))
		require.NoError(t, err)
		for _, m := range []byte{2, 12} {
			pkA, err := KeyGenA(p, p.NormalizeScalarA([]byte{m}), nil)
			require.NoError(t, err)
			ssB, psiS, err := SecretAgreementB(p, skB, pkA, nil, nil)
			require.NoError(t, err)

			comp, bit, err := CompressPsiS(p, *psiS, pkA.A, nil)
			require.NoError(t, err)
			require.Len(t, comp, p.ObytesB())
			require.LessOrEqual(t, bit, byte(1))

			pt, err := DecompressPsiS(p, comp, bit, pkA.A, nil)
			require.NoError(t, err)

			// same cyclic subgroup: the quotient isogeny lands on the same
			// curve, so the shared secret is reproduced
			stub := &PublicKey{A: pkA.A, XP: f.Zero(), XQ: f.Zero(), XR: f.Zero()}
			ss2, _, err := SecretAgreementB(p, nil, stub, &pt, nil)
			require.NoError(t, err)
			require.True(t, f.Equal(ssB, ss2), "seed=%s m=%d", seed, m)

			// and the reconstruction still has full order
			tp := pt
			for i := 0; i < p.EB()-1; i++ {
				tp = XTPL(f, tp, pkA.A, f.One())
				require.False(t, f.IsZero(tp.Z))
			}
		}
	}
}

func TestCompressionBatched(t *testing.T) {
	p := P431()
	f := p.Field()
	skB, _, err := KeyGenB(p, hash.NewReader("sidh/test", []byte("cb")))
	require.NoError(t, err)
	pkA, err := KeyGenA(p, p.NormalizeScalarA([]byte{6}), nil)
	require.NoError(t, err)
	_, psiS, err := SecretAgreementB(p, skB, pkA, nil, nil)
	require.NoError(t, err)

	compPlain, bitPlain, err := CompressPsiS(p, *psiS, pkA.A, nil)
	require.NoError(t, err)
	compBatched, bitBatched, err := CompressPsiS(p, *psiS, pkA.A, batch.New(f, 1))
	require.NoError(t, err)
	require.Equal(t, compPlain, compBatched)
	require.Equal(t, bitPlain, bitBatched)

	ptPlain, err := DecompressPsiS(p, compPlain, bitPlain, pkA.A, nil)
	require.NoError(t, err)
	ptBatched, err := DecompressPsiS(p, compPlain, bitPlain, pkA.A, batch.New(f, 1))
	require.NoError(t, err)
	require.True(t, equalProj(t, p, ptPlain, ptBatched))
}

func TestCompressRejectsInfinity(t *testing.T) {
	p := P431()
	f := p.Field()
	_, _, err := CompressPsiS(p, ProjPoint{X: f.One(), Z: f.Zero()}, f.Zero(), nil)
	require.ErrorIs(t, err, ErrInvalidPoint)
}

func TestScalarValidation(t *testing.T) {
	p := P431()
	require.NoError(t, p.ValidateScalarA([]byte{14}))
	require.ErrorIs(t, p.ValidateScalarA([]byte{16}), ErrScalar)
	require.ErrorIs(t, p.ValidateScalarA([]byte{1, 2}), ErrScalar)
	require.NoError(t, p.ValidateScalarB([]byte{26}))
	require.ErrorIs(t, p.ValidateScalarB([]byte{27}), ErrScalar)
}

func TestNormalizeScalarA(t *testing.T) {
	p := P431()
	for seed := 0; seed < 64; seed++ {
		s := p.NormalizeScalarA([]byte{byte(seed)})
		require.Len(t, s, p.ObytesA())
		v := scalarToBig(s)
		require.Zero(t, v.Bit(0), "must be even")
		require.Positive(t, v.Sign(), "must be nonzero")
		require.Negative(t, v.Cmp(p.orderA), "must be below 2^eA")
	}
}

func TestPublicKeyCodec(t *testing.T) {
	p := P431()
	f := p.Field()
	_, pk, err := KeyGenB(p, hash.NewReader("sidh/test", []byte("codec")))
	require.NoError(t, err)
	enc := p.EncodePublicKey(pk)
	dec, err := p.DecodePublicKey(enc)
	require.NoError(t, err)
	require.True(t, f.Equal(pk.A, dec.A))
	require.True(t, f.Equal(pk.XP, dec.XP))
	require.True(t, f.Equal(pk.XQ, dec.XQ))
	require.True(t, f.Equal(pk.XR, dec.XR))
	_, err = p.DecodePublicKey(enc[:len(enc)-1])
	require.Error(t, err)
}
