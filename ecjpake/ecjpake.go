// Package ecjpake implements the EC-J-PAKE round engine over P-256 with
// SHA-256, as used by the password-authenticated key exchange layer.
//
// The engine works a round at a time: [Context.WriteRoundOne] and
// [Context.WriteRoundTwo] emit a whole round as one blob, the matching read
// entry points consume the peer's blob, and [Context.WriteSharedKey] derives
// the implicit shared secret once both rounds have completed. Callers that
// need finer message granularity slice the blobs themselves.
package ecjpake

import (
	"crypto"
	"crypto/elliptic"
	"errors"
	"math/big"

	// Registers the SHA-256 implementation behind crypto.SHA256.
	_ "crypto/sha256"

	"github.com/krish2718/mbedtls/mod"
	"github.com/krish2718/mbedtls/utils/bignum"
)

var (
	// ErrBadInput is returned when an argument or a message violates the
	// contract of the call.
	ErrBadInput = errors.New("ecjpake: bad input data")

	// ErrInvalidKey is returned for a public key that is off-curve or the
	// point at infinity.
	ErrInvalidKey = errors.New("ecjpake: invalid key")

	// ErrVerifyFailed is returned when a Schnorr proof does not verify.
	ErrVerifyFailed = errors.New("ecjpake: verification failed")

	// ErrBufferTooSmall is returned when the output buffer cannot hold a
	// round or the shared key.
	ErrBufferTooSmall = errors.New("ecjpake: buffer too small")

	// ErrFeatureUnavailable is returned when the requested hash is not
	// compiled in.
	ErrFeatureUnavailable = errors.New("ecjpake: hash feature unavailable")

	// ErrCorruptionDetected is returned when an internal consistency check
	// fails.
	ErrCorruptionDetected = errors.New("ecjpake: corruption detected")
)

// Role selects which side of the exchange the context plays. The two sides
// differ in the framing of the second round and in the transcript identity
// bound into the Schnorr proofs.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// point is an affine curve point. (0, 0) is the point at infinity, matching
// the crypto/elliptic convention.
type point struct {
	x, y *big.Int
}

func (p *point) isZero() bool {
	return p.x.Sign() == 0 && p.y.Sign() == 0
}

// Context holds the per-handshake state of one side of the exchange. The
// zero value is not usable; call [Context.Setup] first and [Context.Free]
// when done so the secret scalars are zeroized.
type Context struct {
	role  Role
	curve elliptic.Curve
	hash  crypto.Hash

	// order describes the group order n; peer proof scalars are
	// range-checked against it in constant time before use.
	order      mod.Modulus
	orderLimbs []uint64

	s        *big.Int // password secret, reduced mod n
	xm1, xm2 *big.Int // own ephemeral secrets
	Xm1, Xm2 *point   // own round-one public keys
	Xp1, Xp2 *point   // peer round-one public keys
	Xp       *point   // peer round-two public key
}

// Setup prepares ctx for a handshake. Only SHA-256 and P-256 are supported.
// The secret is the pre-shared password material; it is reduced modulo the
// group order and retained in reduced form only.
func (c *Context) Setup(role Role, hash crypto.Hash, curve elliptic.Curve, secret []byte) error {
	if role != RoleClient && role != RoleServer {
		return ErrBadInput
	}
	if hash != crypto.SHA256 {
		return ErrFeatureUnavailable
	}
	if curve != elliptic.P256() {
		return ErrBadInput
	}

	c.role = role
	c.hash = hash
	c.curve = curve

	n := curve.Params().N
	c.orderLimbs = bignum.ToLimbs(n, (n.BitLen()+63)/64)
	if err := c.order.Setup(c.orderLimbs, mod.FormatBE, mod.RepOptRed); err != nil {
		return ErrCorruptionDetected
	}

	c.s = new(big.Int).SetBytes(secret)
	c.s.Mod(c.s, n)
	if c.s.Sign() == 0 {
		c.Free()
		return ErrInvalidKey
	}
	return nil
}

// Free zeroizes every secret scalar and resets the context. It is safe on a
// zero or already freed context.
func (c *Context) Free() {
	bignum.Zeroize(c.s)
	bignum.Zeroize(c.xm1)
	bignum.Zeroize(c.xm2)
	c.s = nil
	c.xm1 = nil
	c.xm2 = nil
	c.Xm1 = nil
	c.Xm2 = nil
	c.Xp1 = nil
	c.Xp2 = nil
	c.Xp = nil
	c.order.Free()
	c.orderLimbs = nil
	c.curve = nil
	c.hash = 0
}

// ownID returns the transcript identity this side binds into its proofs.
func (c *Context) ownID() string {
	if c.role == RoleClient {
		return "client"
	}
	return "server"
}

// peerID returns the transcript identity expected in the peer's proofs.
func (c *Context) peerID() string {
	if c.role == RoleClient {
		return "server"
	}
	return "client"
}

func (c *Context) basePoint() *point {
	params := c.curve.Params()
	return &point{params.Gx, params.Gy}
}

func (c *Context) addPoints(p, q *point) *point {
	x, y := c.curve.Add(p.x, p.y, q.x, q.y)
	return &point{x, y}
}

func (c *Context) scalarMult(p *point, k *big.Int) *point {
	buf := make([]byte, (c.curve.Params().N.BitLen()+7)/8)
	k.FillBytes(buf)
	x, y := c.curve.ScalarMult(p.x, p.y, buf)
	return &point{x, y}
}
