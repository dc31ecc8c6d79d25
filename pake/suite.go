package pake

import "crypto"

// Algorithm identifies a PAKE algorithm.
type Algorithm int

const (
	AlgNone Algorithm = iota

	// AlgJPAKE is the password-authenticated key exchange by juggling.
	AlgJPAKE
)

// IsPAKE reports whether a is a PAKE algorithm.
func (a Algorithm) IsPAKE() bool {
	return a == AlgJPAKE
}

// PrimitiveType selects the algebraic setting of a cipher suite.
type PrimitiveType int

const (
	PrimitiveNone PrimitiveType = iota
	PrimitiveECC
	PrimitiveDH
)

// Family identifies a curve or group family inside a primitive type.
type Family int

const (
	FamilyNone Family = iota
	FamilySECPR1
	FamilySECPK1
	FamilyMontgomery
)

// Role selects the side a handle plays in the exchange.
type Role int

const (
	RoleNone Role = iota
	RoleFirst
	RoleSecond
	RoleClient
	RoleServer
)

// Step names the protocol payload moved by one Output or Input call.
type Step int

const (
	StepKeyShare Step = iota + 1
	StepZKPublic
	StepZKProof
)

// CipherSuite is the full description of the PAKE instantiation requested
// at setup.
type CipherSuite struct {
	Algorithm Algorithm
	Primitive PrimitiveType
	Family    Family
	Bits      int
	Hash      crypto.Hash
}

// isHash reports whether h names a hash algorithm.
func isHash(h crypto.Hash) bool {
	switch h {
	case crypto.SHA1, crypto.SHA224, crypto.SHA256, crypto.SHA384, crypto.SHA512,
		crypto.SHA3_256, crypto.SHA3_384, crypto.SHA3_512:
		return true
	}
	return false
}
