package mod

import (
	"github.com/krish2718/mbedtls/utils"
)

// CondAssign sets x to a over m.Limbs() limbs when assign is 1 and leaves x
// untouched when assign is 0. The memory trace is identical in both cases.
// Any other value of assign leaves x unspecified.
func (m *Modulus) CondAssign(x, a []uint64, assign uint64) {
	mask := -assign
	for i := 0; i < m.limbs; i++ {
		x[i] ^= mask & (x[i] ^ a[i])
	}
}

// CondSwap exchanges x and y over m.Limbs() limbs when swap is 1 and leaves
// both untouched when swap is 0, under the same side-channel contract as
// [Modulus.CondAssign].
func (m *Modulus) CondSwap(x, y []uint64, swap uint64) {
	mask := -swap
	for i := 0; i < m.limbs; i++ {
		t := mask & (x[i] ^ y[i])
		x[i] ^= t
		y[i] ^= t
	}
}

// Read imports input, in the external byte order of m, into the limb buffer
// x. Input longer than m.Limbs()*WordBytes bytes is rejected with
// [ErrBufferTooSmall] whatever its value; within that length, leading zero
// bytes are accepted and consumed. The imported value must
// be strictly less than the modulus; the range check runs in constant time
// and x is zeroized when it fails.
func (m *Modulus) Read(x []uint64, input []byte) error {
	if m.ext == FormatInvalid || len(x) < m.limbs {
		return ErrBadInput
	}
	if len(input) > m.limbs*WordBytes {
		return ErrBufferTooSmall
	}
	for i := 0; i < m.limbs; i++ {
		x[i] = 0
	}
	for i, b := range input {
		// pos is the significance of the byte, counted from the least
		// significant end. Only public lengths are branched on.
		pos := i
		if m.ext == FormatBE {
			pos = len(input) - 1 - i
		}
		x[pos/WordBytes] |= uint64(b) << (8 * (pos % WordBytes))
	}
	if ltCT(x[:m.limbs], m.p) != 1 {
		utils.Zeroize(x[:m.limbs])
		return ErrBadInput
	}
	return nil
}

// Write exports a as len(output) bytes in the external byte order of m,
// padding the high side with zeros. The output length must cover the byte
// length of the modulus; the export runs in time independent of the limb
// values.
func (m *Modulus) Write(a []uint64, output []byte) error {
	if m.ext == FormatInvalid || len(a) < m.limbs {
		return ErrBadInput
	}
	if len(output) < (m.bits+7)/8 {
		return ErrBufferTooSmall
	}
	for i := range output {
		pos := i
		if m.ext == FormatBE {
			pos = len(output) - 1 - i
		}
		var b byte
		if pos < m.limbs*WordBytes {
			b = byte(a[pos/WordBytes] >> (8 * (pos % WordBytes)))
		}
		output[i] = b
	}
	return nil
}
