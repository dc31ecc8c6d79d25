package ecjpake

import (
	"io"
	"math/big"

	"golang.org/x/crypto/cryptobyte"

	"github.com/krish2718/mbedtls/utils"
	"github.com/krish2718/mbedtls/utils/bignum"
)

// Named-curve ECParameters prefix emitted by the server's second round:
// curve_type named_curve(3) followed by the secp256r1 identifier.
const (
	curveTypeNamedCurve = 3
	curveIDSecp256r1    = 0x0017
)

// genKeyPair draws an ephemeral secret in [1, n-1] and returns it with its
// public key.
func (c *Context) genKeyPair(rng io.Reader) (*big.Int, *point) {
	n := c.curve.Params().N
	d := bignum.RandInt(rng, new(big.Int).Sub(n, bignum.NewInt(1)))
	d.Add(d, bignum.NewInt(1))
	x, y := c.curve.ScalarBaseMult(d.FillBytes(make([]byte, scalarBytes)))
	return d, &point{x, y}
}

// emit finalizes the builder into buf and returns the byte count.
func emit(b *cryptobyte.Builder, buf []byte) (int, error) {
	out, err := b.Bytes()
	if err != nil {
		return 0, ErrBadInput
	}
	if len(out) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	return copy(buf, out), nil
}

// WriteRoundOne generates the two ephemeral key pairs and emits the first
// round: each key share as a TLS ECPoint followed by its Schnorr proof.
func (c *Context) WriteRoundOne(buf []byte, rng io.Reader) (int, error) {
	if c.curve == nil {
		return 0, ErrBadInput
	}

	G := c.basePoint()
	b := cryptobyte.NewBuilder(nil)

	c.xm1, c.Xm1 = c.genKeyPair(rng)
	addPoint(b, c.curve, c.Xm1)
	c.zkpWrite(b, rng, G, c.xm1, c.Xm1)

	c.xm2, c.Xm2 = c.genKeyPair(rng)
	addPoint(b, c.curve, c.Xm2)
	c.zkpWrite(b, rng, G, c.xm2, c.Xm2)

	return emit(b, buf)
}

// ReadRoundOne parses and verifies the peer's first round: two key shares,
// each proven in base G under the peer's identity.
func (c *Context) ReadRoundOne(data []byte) error {
	if c.curve == nil {
		return ErrBadInput
	}

	s := cryptobyte.String(data)
	G := c.basePoint()

	for _, dst := range []**point{&c.Xp1, &c.Xp2} {
		X, err := readPoint(&s, c.curve)
		if err != nil {
			return err
		}
		if err := c.zkpVerify(&s, G, X, c.peerID()); err != nil {
			return err
		}
		*dst = X
	}

	if len(s) != 0 {
		return ErrBadInput
	}
	return nil
}

// WriteRoundTwo emits the second round: the combined key share
// A = (Xp1 + Xp2 + Xm1) * (xm2*s) with its Schnorr proof in the combined
// base. The server side leads with the named-curve ECParameters.
func (c *Context) WriteRoundTwo(buf []byte, rng io.Reader) (int, error) {
	if c.curve == nil || c.Xp1 == nil || c.Xp2 == nil {
		return 0, ErrBadInput
	}

	n := c.curve.Params().N
	gen := c.addPoints(c.addPoints(c.Xp1, c.Xp2), c.Xm1)

	x2s := new(big.Int).Mul(c.xm2, c.s)
	x2s.Mod(x2s, n)
	A := c.scalarMult(gen, x2s)

	b := cryptobyte.NewBuilder(nil)
	if c.role == RoleServer {
		b.AddUint8(curveTypeNamedCurve)
		b.AddUint16(curveIDSecp256r1)
	}
	addPoint(b, c.curve, A)
	c.zkpWrite(b, rng, gen, x2s, A)

	bignum.Zeroize(x2s)

	return emit(b, buf)
}

// ReadRoundTwo parses and verifies the peer's second round. The client
// expects and checks the server's leading ECParameters; the proof base is
// Xm1 + Xm2 + Xp1.
func (c *Context) ReadRoundTwo(data []byte) error {
	if c.curve == nil || c.Xp1 == nil || c.Xp2 == nil {
		return ErrBadInput
	}

	s := cryptobyte.String(data)

	if c.role == RoleClient {
		var curveType uint8
		var curveID uint16
		if !s.ReadUint8(&curveType) || !s.ReadUint16(&curveID) {
			return ErrBadInput
		}
		if curveType != curveTypeNamedCurve || curveID != curveIDSecp256r1 {
			return ErrBadInput
		}
	}

	gen := c.addPoints(c.addPoints(c.Xm1, c.Xm2), c.Xp1)

	X, err := readPoint(&s, c.curve)
	if err != nil {
		return err
	}
	if err := c.zkpVerify(&s, gen, X, c.peerID()); err != nil {
		return err
	}
	if len(s) != 0 {
		return ErrBadInput
	}

	c.Xp = X
	return nil
}

// WriteSharedKey derives the implicit shared secret
// K = (Xp - Xp2*(xm2*s)) * xm2 and writes SHA-256 of its x coordinate. Both
// sides of a completed handshake derive the same bytes.
func (c *Context) WriteSharedKey(buf []byte, rng io.Reader) (int, error) {
	_ = rng // reserved for scalar blinding
	if c.curve == nil || c.Xp == nil || c.Xp2 == nil {
		return 0, ErrBadInput
	}

	n := c.curve.Params().N

	t := new(big.Int).Mul(c.xm2, c.s)
	t.Neg(t)
	t.Mod(t, n)

	K := c.scalarMult(c.addPoints(c.Xp, c.scalarMult(c.Xp2, t)), c.xm2)
	if K.isZero() {
		bignum.Zeroize(t)
		return 0, ErrInvalidKey
	}

	kx := make([]byte, scalarBytes)
	K.x.FillBytes(kx)
	h := c.hash.New()
	h.Write(kx)
	digest := h.Sum(nil)

	bignum.Zeroize(t)
	bignum.Zeroize(K.x)
	bignum.Zeroize(K.y)
	utils.Zeroize(kx)

	if len(buf) < len(digest) {
		utils.Zeroize(digest)
		return 0, ErrBufferTooSmall
	}
	written := copy(buf, digest)
	utils.Zeroize(digest)
	return written, nil
}
