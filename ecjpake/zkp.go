package ecjpake

import (
	"crypto/elliptic"
	"encoding/binary"
	"hash"
	"io"
	"math/big"

	"golang.org/x/crypto/cryptobyte"

	"github.com/krish2718/mbedtls/mod"
	"github.com/krish2718/mbedtls/utils/bignum"
)

// scalarBytes is the encoded size of a proof scalar for P-256.
const scalarBytes = 32

// addPoint appends p as a TLS ECPoint: one length byte followed by the
// uncompressed encoding.
func addPoint(b *cryptobyte.Builder, curve elliptic.Curve, p *point) {
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(elliptic.Marshal(curve, p.x, p.y))
	})
}

// readPoint consumes a TLS ECPoint and validates it: the encoding must be a
// well-formed uncompressed point on the curve, and the point at infinity is
// rejected.
func readPoint(s *cryptobyte.String, curve elliptic.Curve) (*point, error) {
	var enc cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&enc) || len(enc) == 0 {
		return nil, ErrBadInput
	}
	x, y := elliptic.Unmarshal(curve, enc)
	if x == nil {
		return nil, ErrInvalidKey
	}
	p := &point{x, y}
	if p.isZero() {
		return nil, ErrInvalidKey
	}
	return p, nil
}

// hashPoint absorbs a point into the transcript as a 4-byte big-endian
// length followed by the TLS ECPoint encoding.
func hashPoint(h hash.Hash, curve elliptic.Curve, p *point) {
	enc := elliptic.Marshal(curve, p.x, p.y)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(enc)+1))
	h.Write(length[:])
	h.Write([]byte{byte(len(enc))})
	h.Write(enc)
}

// zkpHash computes the Schnorr challenge for the proof of knowledge of the
// discrete log of X in base gen, bound to the prover identity id, reduced
// modulo the group order.
func (c *Context) zkpHash(gen, V, X *point, id string) *big.Int {
	h := c.hash.New()
	hashPoint(h, c.curve, gen)
	hashPoint(h, c.curve, V)
	hashPoint(h, c.curve, X)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(id)))
	h.Write(length[:])
	h.Write([]byte(id))
	e := new(big.Int).SetBytes(h.Sum(nil))
	return e.Mod(e, c.curve.Params().N)
}

// zkpWrite appends a Schnorr proof of knowledge of x = log_gen(X) to b,
// framed as an ECPoint commitment followed by a length-prefixed scalar.
func (c *Context) zkpWrite(b *cryptobyte.Builder, rng io.Reader, gen *point, x *big.Int, X *point) {
	n := c.curve.Params().N
	nMinusOne := new(big.Int).Sub(n, bignum.NewInt(1))

	// v in [1, n-1]
	v := bignum.RandInt(rng, nMinusOne)
	v.Add(v, bignum.NewInt(1))

	V := c.scalarMult(gen, v)
	e := c.zkpHash(gen, V, X, c.ownID())

	r := new(big.Int).Mul(x, e)
	r.Sub(v, r)
	r.Mod(r, n)

	addPoint(b, c.curve, V)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		enc := make([]byte, scalarBytes)
		r.FillBytes(enc)
		b.AddBytes(enc)
	})

	bignum.Zeroize(v)
	bignum.Zeroize(r)
}

// zkpVerify consumes and checks the Schnorr proof for X in base gen issued
// under the identity id: V must equal r*gen + e*X.
func (c *Context) zkpVerify(s *cryptobyte.String, gen, X *point, id string) error {
	V, err := readPoint(s, c.curve)
	if err != nil {
		return err
	}

	var enc cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&enc) || len(enc) == 0 {
		return ErrBadInput
	}
	r, err := c.readScalar(enc)
	if err != nil {
		return err
	}

	e := c.zkpHash(gen, V, X, id)

	lhs := c.addPoints(c.scalarMult(gen, r), c.scalarMult(X, e))
	if lhs.x.Cmp(V.x) != 0 || lhs.y.Cmp(V.y) != 0 {
		return ErrVerifyFailed
	}
	return nil
}

// readScalar imports a big-endian proof scalar, range-checking it against
// the group order in constant time through the residue substrate.
func (c *Context) readScalar(enc []byte) (*big.Int, error) {
	limbs := make([]uint64, c.order.Limbs())
	if err := c.order.Read(limbs, enc); err != nil {
		return nil, err
	}
	var res mod.Residue
	if err := res.Setup(limbs, &c.order); err != nil {
		return nil, err
	}
	defer res.Release()
	return bignum.FromLimbs(res.Buf()), nil
}
