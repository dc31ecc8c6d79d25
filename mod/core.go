package mod

import (
	"math/big"
	"math/bits"

	"github.com/krish2718/mbedtls/utils/bignum"
)

// bitLen returns the position of the highest set bit of p plus one, reading
// p as little-endian limbs. The result is 0 for a zero value. The modulus
// is public, so the scan needs no constant-time protection.
func bitLen(p []uint64) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0 {
			return i*64 + bits.Len64(p[i])
		}
	}
	return 0
}

// ltCT returns 1 if a < b and 0 otherwise, reading both as little-endian
// integers of len(a) limbs. b may be shorter than a, in which case it is
// zero-extended. The comparison runs in constant time with respect to the
// limb values: only the public lengths are branched on.
func ltCT(a, b []uint64) uint64 {
	var borrow uint64
	for i := range a {
		var bi uint64
		if i < len(b) {
			bi = b[i]
		}
		_, borrow = bits.Sub64(a[i], bi, borrow)
	}
	return borrow
}

// montmulInit returns the low word of -p^-1 mod 2^64 for an odd p, the
// multiplier used by Montgomery reduction.
func montmulInit(p0 uint64) uint64 {
	// Newton iteration on the inverse mod 2^64: the seed is correct to 3
	// bits for any odd p0 and every round doubles that, so five rounds
	// reach the full word.
	inv := p0
	for i := 0; i < 5; i++ {
		inv *= 2 - p0*inv
	}
	return -inv
}

// montR2 computes R^2 mod p with R = 2^(64*len(p)) into a freshly allocated
// limb vector of len(p) limbs. The limb count is bounded to keep the
// intermediate squaring below the global limb cap.
func montR2(p []uint64) ([]uint64, error) {
	limbs := len(p)
	if limbs == 0 || limbs >= MaxLimbs/2-2 {
		return nil, ErrCorruptionDetected
	}
	rr := new(big.Int).Lsh(bignum.NewInt(1), uint(2*64*limbs))
	rr.Mod(rr, bignum.FromLimbs(p))
	return bignum.ToLimbs(rr, limbs), nil
}
