package yoo

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/isosign/pkg/hash"
	"github.com/luxfi/isosign/pkg/sidh"
)

// zeroRand returns the deterministic test randomness stream, seeded with a
// zero byte plus a context label.
func zeroRand(label string) io.Reader {
	return hash.NewReader("yoo/test", []byte{0}, []byte(label))
}

func testKeyPair(t *testing.T) (*sidh.Params, PrivateKey, *sidh.PublicKey) {
	t.Helper()
	p := sidh.P431()
	sk, pk, err := GenerateKey(p, zeroRand("keypair"))
	require.NoError(t, err)
	return p, sk, pk
}

// clone deep-copies a signature through its binary encoding.
func clone(t *testing.T, sig *Signature) *Signature {
	t.Helper()
	data, err := sig.MarshalBinary()
	require.NoError(t, err)
	out := new(Signature)
	require.NoError(t, out.UnmarshalBinary(data))
	return out
}

func TestSignVerifyAllModes(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	cases := []struct {
		name string
		opts Options
	}{
		{"plain", Options{}},
		{"batched", Options{Batched: true}},
		{"compressed", Options{Compressed: true}},
		{"batched+compressed", Options{Batched: true, Compressed: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			opts.Rand = zeroRand("sign-" + tc.name)
			sig, err := Sign(p, sk, pk, &opts)
			require.NoError(t, err)
			require.NoError(t, Verify(p, pk, sig, &opts))
		})
	}
}

// Batching is a performance transform, not a semantic one: with identical
// randomness the batched signature is byte-for-byte the plain one.
func TestBatchingDoesNotChangeTheSignature(t *testing.T) {
	p, sk, pk := testKeyPair(t)

	plain, err := Sign(p, sk, pk, &Options{Rand: zeroRand("same")})
	require.NoError(t, err)
	batched, err := Sign(p, sk, pk, &Options{Batched: true, Rand: zeroRand("same")})
	require.NoError(t, err)

	require.Equal(t, plain.Commitments1, batched.Commitments1)
	require.Equal(t, plain.Commitments2, batched.Commitments2)
	require.Equal(t, plain.Randoms, batched.Randoms)
	require.Equal(t, plain.PsiS, batched.PsiS)
	require.Equal(t, plain.HashResp, batched.HashResp)
}

func TestWorkerCountIndependence(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	var reference []byte
	for _, workers := range []int{1, 2, 3, p.NumRounds()} {
		sig, err := Sign(p, sk, pk, &Options{Workers: workers, Rand: zeroRand("workers")})
		require.NoError(t, err)
		data, err := sig.MarshalBinary()
		require.NoError(t, err)
		if reference == nil {
			reference = data
			continue
		}
		require.Equal(t, reference, data, "workers=%d", workers)
	}
}

func TestChallengeDeterminism(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	sig, err := Sign(p, sk, pk, &Options{Rand: zeroRand("challenge")})
	require.NoError(t, err)
	c1 := challenge(p, sig)
	c2 := challenge(p, clone(t, sig))
	require.Equal(t, c1, c2)
	require.Len(t, c1, p.ChallengeBytes())
}

func TestTamperedCompressedResponse(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	opts := &Options{Batched: true, Compressed: true, Rand: zeroRand("tamper-comp")}
	sig, err := Sign(p, sk, pk, opts)
	require.NoError(t, err)
	require.NoError(t, Verify(p, pk, sig, opts))

	bad := clone(t, sig)
	bad.CompPsiS[0][0] ^= 1
	err = Verify(p, pk, bad, opts)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTamperedOddScalar(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	opts := &Options{Rand: zeroRand("tamper-odd")}
	sig, err := Sign(p, sk, pk, opts)
	require.NoError(t, err)

	bad := clone(t, sig)
	bad.Randoms[3][0] |= 1
	err = Verify(p, pk, bad, &Options{})
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTamperEvidence(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	sig, err := Sign(p, sk, pk, &Options{Rand: zeroRand("tamper")})
	require.NoError(t, err)
	require.NoError(t, Verify(p, pk, sig, &Options{}))

	flips := []struct {
		name string
		flip func(*Signature)
	}{
		{"commitment1", func(s *Signature) { s.Commitments1[2][0] ^= 0x40 }},
		{"commitment2", func(s *Signature) { s.Commitments2[5][1] ^= 0x04 }},
		{"random", func(s *Signature) { s.Randoms[1][0] ^= 0x02 }},
		{"psiS", func(s *Signature) { s.PsiS[6][3] ^= 0x10 }},
		{"hashResp", func(s *Signature) { s.HashResp[17] ^= 0x80 }},
	}
	for _, tc := range flips {
		t.Run(tc.name, func(t *testing.T) {
			bad := clone(t, sig)
			tc.flip(bad)
			err := Verify(p, pk, bad, &Options{})
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifyRejectsMalformedShapes(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	sig, err := Sign(p, sk, pk, &Options{Rand: zeroRand("shape")})
	require.NoError(t, err)

	mutations := []struct {
		name   string
		mutate func(*Signature)
	}{
		{"missing round", func(s *Signature) { s.Randoms = s.Randoms[:len(s.Randoms)-1] }},
		{"short scalar", func(s *Signature) { s.Randoms[0] = nil }},
		{"short digest table", func(s *Signature) { s.HashResp = s.HashResp[:7] }},
		{"short response", func(s *Signature) { s.PsiS[2] = s.PsiS[2][:3] }},
		{"stray compressed response", func(s *Signature) { s.CompPsiS = make([][]byte, len(s.Randoms)) }},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			bad := clone(t, sig)
			tc.mutate(bad)
			err := Verify(p, pk, bad, &Options{})
			require.ErrorIs(t, err, ErrInvalidSignature)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestVerifyRejectsWrongPublicKey(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	_, otherPk, err := GenerateKey(p, zeroRand("other-key"))
	require.NoError(t, err)

	// A bit-0 round has to open against the long-term key for the
	// mismatch to surface; with several independent signatures at least
	// one challenge contains a zero bit.
	failures := 0
	for _, label := range []string{"wk-0", "wk-1", "wk-2", "wk-3"} {
		sig, err := Sign(p, sk, pk, &Options{Rand: zeroRand(label)})
		require.NoError(t, err)
		if err := Verify(p, otherPk, sig, &Options{}); err != nil {
			require.ErrorIs(t, err, ErrInvalidSignature)
			failures++
		}
	}
	require.Positive(t, failures)
}

func TestMarshalRoundTrip(t *testing.T) {
	p, sk, pk := testKeyPair(t)
	opts := &Options{Compressed: true, Rand: zeroRand("marshal")}
	sig, err := Sign(p, sk, pk, opts)
	require.NoError(t, err)

	restored := clone(t, sig)
	require.Equal(t, sig.Compressed, restored.Compressed)
	require.NoError(t, Verify(p, pk, restored, opts))
}

func TestSignRequiresPublicKey(t *testing.T) {
	p, sk, _ := testKeyPair(t)
	_, err := Sign(p, sk, nil, &Options{Rand: zeroRand("nopk")})
	require.Error(t, err)
}

func TestVerifyRequiresInputs(t *testing.T) {
	p, _, pk := testKeyPair(t)
	require.ErrorIs(t, Verify(p, pk, nil, nil), ErrInvalidSignature)
	require.ErrorIs(t, Verify(p, nil, &Signature{}, nil), ErrInvalidSignature)
}
