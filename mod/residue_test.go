package mod

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krish2718/mbedtls/utils/bignum"
)

func TestResidueSetup(t *testing.T) {

	p := p256Limbs()
	var m Modulus
	require.NoError(t, m.Setup(p, FormatBE, RepMontgomery))
	defer m.Free()

	t.Run(testString("ValueBelowModulus", 4), func(t *testing.T) {
		// p - 1
		buf := p256Limbs()
		buf[0]--

		var r Residue
		require.NoError(t, r.Setup(buf, &m))
		require.Equal(t, 4, r.Limbs())
		require.Equal(t, buf, r.Buf())

		r.Release()
		require.Zero(t, r.Limbs())
		require.Nil(t, r.Buf())
	})

	t.Run(testString("ValueEqualToModulus", 4), func(t *testing.T) {
		var r Residue
		require.ErrorIs(t, r.Setup(p256Limbs(), &m), ErrBadInput)
	})

	t.Run(testString("ValueAboveModulus", 4), func(t *testing.T) {
		// p + 2^128: limb 2 of p is zero, so the increment cannot carry.
		buf := p256Limbs()
		buf[2]++
		var r Residue
		require.ErrorIs(t, r.Setup(buf, &m), ErrBadInput)
	})

	t.Run(testString("BufferTooShort", 3), func(t *testing.T) {
		var r Residue
		require.ErrorIs(t, r.Setup([]uint64{1, 2, 3}, &m), ErrBadInput)
	})

	t.Run(testString("OversizedBufferZeroHigh", 6), func(t *testing.T) {
		buf := append(p256Limbs(), 0, 0)
		buf[0]--
		var r Residue
		require.NoError(t, r.Setup(buf, &m))
		require.Equal(t, 4, r.Limbs())
	})

	t.Run(testString("OversizedBufferNonZeroHigh", 6), func(t *testing.T) {
		buf := append(make([]uint64, 4), 0, 1)
		var r Residue
		require.ErrorIs(t, r.Setup(buf, &m), ErrBadInput)
	})

	t.Run(testString("Zero", 4), func(t *testing.T) {
		var r Residue
		require.NoError(t, r.Setup(make([]uint64, 4), &m))
	})
}

func TestLtCT(t *testing.T) {

	t.Run("AgainstBigInt", func(t *testing.T) {
		bound := new(big.Int).Lsh(bignum.NewInt(1), 256)
		for i := 0; i < 256; i++ {
			a := bignum.RandInt(rand.Reader, bound)
			b := bignum.RandInt(rand.Reader, bound)

			want := uint64(0)
			if a.Cmp(b) < 0 {
				want = 1
			}
			require.Equal(t, want, ltCT(bignum.ToLimbs(a, 4), bignum.ToLimbs(b, 4)))
		}
	})

	t.Run("Equal", func(t *testing.T) {
		require.Zero(t, ltCT(p256Limbs(), p256Limbs()))
	})

	t.Run("ShortSecondOperand", func(t *testing.T) {
		// b is zero-extended: a four-limb value is never below a one-limb one
		// unless its high limbs are zero.
		require.Zero(t, ltCT(p256Limbs(), []uint64{^uint64(0)}))
		require.Equal(t, uint64(1), ltCT([]uint64{5, 0, 0, 0}, []uint64{6}))
	})
}
