// Package bignum implements arbitrary precision integer helpers on top of math/big.
package bignum

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// NewInt allocates a new *big.Int.
// Accepted types are: string, uint, uint64, int64, int or *big.Int.
func NewInt(x interface{}) (y *big.Int) {

	y = new(big.Int)

	if x == nil {
		return
	}

	switch x := x.(type) {
	case string:
		y.SetString(x, 0)
	case uint:
		y.SetUint64(uint64(x))
	case uint64:
		y.SetUint64(x)
	case int64:
		y.SetInt64(x)
	case int:
		y.SetInt64(int64(x))
	case *big.Int:
		y.Set(x)
	default:
		panic(fmt.Sprintf("cannot NewInt: accepted types are string, uint, uint64, int, int64, *big.Int, but is %T", x))
	}

	return
}

// RandInt generates a random Int in [0, max-1].
func RandInt(reader io.Reader, max *big.Int) (n *big.Int) {
	var err error
	if n, err = rand.Int(reader, max); err != nil {
		panic(fmt.Errorf("rand.Int: %w", err))
	}
	return
}

// FromLimbs returns the value of p read as little-endian 64-bit limbs.
func FromLimbs(p []uint64) (x *big.Int) {
	x = new(big.Int)
	tmp := new(big.Int)
	for i := len(p) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, tmp.SetUint64(p[i]))
	}
	return
}

// ToLimbs returns x as a little-endian limb vector of the given length.
// x must be non-negative and fit in 64*limbs bits.
func ToLimbs(x *big.Int, limbs int) (p []uint64) {
	if x.Sign() < 0 || x.BitLen() > 64*limbs {
		panic(fmt.Sprintf("cannot ToLimbs: %d-bit value does not fit in %d limbs", x.BitLen(), limbs))
	}
	p = make([]uint64, limbs)
	tmp := new(big.Int).Set(x)
	mask := new(big.Int).SetUint64(^uint64(0))
	and := new(big.Int)
	for i := range p {
		p[i] = and.And(tmp, mask).Uint64()
		tmp.Rsh(tmp, 64)
	}
	return
}

// Zeroize overwrites the backing storage of x with zeros and resets it to 0.
func Zeroize(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
