// Package mod implements residues modulo a fixed positive integer, with
// constant-time guarantees on every operation touching residue values.
//
// A [Modulus] stores the limbs of p together with the precomputation of its
// internal representation; a [Residue] is a non-owning view of a
// caller-supplied limb buffer whose value is strictly less than p. Residue
// values are imported and exported through the byte order selected at setup.
package mod

import (
	"errors"

	"github.com/krish2718/mbedtls/utils"
)

// MaxLimbs is the global limb cap. The Montgomery representation accepts
// fewer than MaxLimbs/2-2 limbs; the OptRed representation checks no limb
// bound.
const MaxLimbs = 10000

// WordBytes is the byte size of a limb.
const WordBytes = 8

var (
	// ErrBadInput is returned when an argument violates the contract of the call.
	ErrBadInput = errors.New("mod: bad input data")

	// ErrBufferTooSmall is returned when a buffer cannot hold the requested value.
	ErrBufferTooSmall = errors.New("mod: buffer too small")

	// ErrCorruptionDetected is returned when an internal consistency check fails.
	ErrCorruptionDetected = errors.New("mod: corruption detected")
)

// ExternalFormat selects the byte order used when importing and exporting
// residues bound to a modulus.
type ExternalFormat int

const (
	FormatInvalid ExternalFormat = iota

	// FormatLE reads and writes bytes least-significant first.
	FormatLE

	// FormatBE reads and writes bytes most-significant first.
	FormatBE
)

// Representation selects the internal representation of residues bound to a
// modulus.
type Representation int

const (
	RepInvalid Representation = iota

	// RepMontgomery keeps residues in the Montgomery domain.
	RepMontgomery

	// RepOptRed keeps residues in the canonical domain and reduces
	// opportunistically.
	RepOptRed
)

// montgomery holds the precomputation of the Montgomery representation.
type montgomery struct {
	// mm is the low word of -p^-1 mod 2^64.
	mm uint64

	// rr is R^2 mod p with R = 2^(64*limbs). Owned by the modulus.
	rr []uint64
}

// Modulus describes a positive integer p > 1 together with the
// precomputation required by its internal representation. The zero value is
// ready for [Modulus.Setup]; a freed or failed modulus is equivalent to the
// zero value.
type Modulus struct {
	p     []uint64 // caller owned
	limbs int
	bits  int
	ext   ExternalFormat
	rep   Representation
	mont  *montgomery
	ored  interface{} // reserved for opportunistic reduction precomputation
}

// Setup populates m from the little-endian limbs of p. The limb slice is
// retained but not owned: it must outlive the modulus and any residue bound
// to it. p must be canonical (no leading zero limb) and greater than one;
// the Montgomery representation additionally requires p odd.
//
// On error every partially acquired resource is released and m is left in
// the freed state.
func (m *Modulus) Setup(p []uint64, ext ExternalFormat, rep Representation) (err error) {

	m.p = p
	m.limbs = len(p)
	m.bits = bitLen(p)

	if m.limbs == 0 || p[m.limbs-1] == 0 || m.bits < 2 {
		m.Free()
		return ErrBadInput
	}

	switch ext {
	case FormatLE, FormatBE:
		m.ext = ext
	default:
		m.Free()
		return ErrBadInput
	}

	switch rep {
	case RepMontgomery:
		// No Montgomery multiplier exists for an even modulus.
		if p[0]&1 == 0 {
			m.Free()
			return ErrBadInput
		}
		m.rep = rep
		mont := &montgomery{mm: montmulInit(p[0])}
		if mont.rr, err = montR2(p); err != nil {
			m.Free()
			return err
		}
		m.mont = mont
	case RepOptRed:
		m.rep = rep
		m.ored = nil
	default:
		m.Free()
		return ErrBadInput
	}

	return nil
}

// Free zeroizes and releases the owned precomputation and resets m to the
// freed state. The caller-supplied limb slice is left untouched.
func (m *Modulus) Free() {
	switch m.rep {
	case RepMontgomery:
		if m.mont != nil {
			utils.Zeroize(m.mont.rr)
			m.mont.rr = nil
			m.mont.mm = 0
			m.mont = nil
		}
	case RepOptRed:
		m.ored = nil
	}
	m.p = nil
	m.limbs = 0
	m.bits = 0
	m.ext = FormatInvalid
	m.rep = RepInvalid
}

// Limbs returns the limb count of the modulus.
func (m *Modulus) Limbs() int { return m.limbs }

// Bits returns the bit length of the modulus.
func (m *Modulus) Bits() int { return m.bits }

// Ext returns the external byte order of the modulus.
func (m *Modulus) Ext() ExternalFormat { return m.ext }

// Rep returns the internal representation of the modulus.
func (m *Modulus) Rep() Representation { return m.rep }

// MontgomeryMM returns the Montgomery multiplier -p^-1 mod 2^64, or 0 when
// the modulus does not use the Montgomery representation.
func (m *Modulus) MontgomeryMM() uint64 {
	if m.mont == nil {
		return 0
	}
	return m.mont.mm
}

// MontgomeryRR returns R^2 mod p, or nil when the modulus does not use the
// Montgomery representation. The returned slice is owned by the modulus and
// must not be modified.
func (m *Modulus) MontgomeryRR() []uint64 {
	if m.mont == nil {
		return nil
	}
	return m.mont.rr
}
