// Package pake implements a streaming password-authenticated key exchange
// operation on top of the round-at-a-time [ecjpake] engine.
//
// The engine produces and consumes whole rounds as single blobs, while this
// API moves one key-share, public-commitment or proof payload per call. The
// gap is bridged by a staging buffer: on output, a whole round is written
// into the buffer at the first key-share call of the round and sliced out on
// the following calls; on input, payloads accumulate in the buffer and the
// whole round is handed to the engine at the final proof of the round. As a
// consequence, malformed peer data surfaces only at that final call.
package pake

import (
	"crypto"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/krish2718/mbedtls/ecjpake"
	"github.com/krish2718/mbedtls/kdf"
	"github.com/krish2718/mbedtls/keystore"
	"github.com/krish2718/mbedtls/utils"
)

// BufferSize is the staging capacity: three bytes of curve parameters, two
// length-prefixed 65-byte points and one length-prefixed 32-byte scalar per
// key share, doubled for the two key shares of the first round.
const BufferSize = (3 + 1 + 65 + 1 + 65 + 1 + 32) * 2

// state is the coarse position of the handle.
type state int

const (
	stateInvalid state = iota
	stateSetup
	stateReady
	stateOutputX1X2
	stateOutputX2S
	stateInputX1X2
	stateInputX4S
)

// sequence is the position inside the current round. The second round
// reuses the X1 positions with a single key share.
type sequence int

const (
	seqInvalid sequence = iota
	seqX1KeyShare
	seqX1ZKPublic
	seqX1ZKProof
	seqX2KeyShare
	seqX2ZKPublic
	seqX2ZKProof
	seqEnd
)

// round is the coarse round pointer, advanced independently for each
// direction.
type round int

const (
	roundInvalid round = iota
	roundX1X2
	roundX2S
	roundDerive
)

// Operation is a PAKE handle. The zero value is freshly initialized and
// ready for [Operation.Setup]. A handle must not be used concurrently.
type Operation struct {
	alg      Algorithm
	state    state
	sequence sequence

	inputStep  round
	outputStep round

	role     Role
	keys     *keystore.Store
	password keystore.KeyID

	ctx ecjpake.Context

	buffer       [BufferSize]byte
	bufferLength int
	bufferOffset int
}

// Setup binds the handle to a cipher suite. Only freshly initialized
// handles can be set up, and only the JPAKE suite over P-256 with SHA-256
// is supported.
func (op *Operation) Setup(suite CipherSuite) error {
	if op.alg != AlgNone {
		return ErrBadState
	}

	if !suite.Algorithm.IsPAKE() ||
		(suite.Primitive != PrimitiveECC && suite.Primitive != PrimitiveDH) ||
		!isHash(suite.Hash) {
		return ErrInvalidArgument
	}

	if suite.Algorithm == AlgJPAKE {
		if suite.Primitive != PrimitiveECC ||
			suite.Family != FamilySECPR1 ||
			suite.Bits != 256 ||
			suite.Hash != crypto.SHA256 {
			return ErrNotSupported
		}

		op.alg = suite.Algorithm
		op.state = stateSetup
		op.sequence = seqInvalid
		op.inputStep = roundX1X2
		op.outputStep = roundX1X2

		utils.Zeroize(op.buffer[:])
		op.bufferLength = 0
		op.bufferOffset = 0

		return nil
	}

	return ErrNotSupported
}

// SetPasswordKey binds the password key. The key must hold a password or
// password hash and carry the derive usage; only its attributes are read
// here, the material is consumed at the first Output or Input call.
func (op *Operation) SetPasswordKey(keys *keystore.Store, password keystore.KeyID) error {
	if op.alg == AlgNone || op.state != stateSetup {
		return ErrBadState
	}

	attr, err := keys.Attributes(password)
	if err != nil {
		return err
	}

	if attr.Type != keystore.TypePassword && attr.Type != keystore.TypePasswordHash {
		return ErrInvalidArgument
	}
	if attr.Usage&keystore.UsageDerive == 0 {
		return ErrNotPermitted
	}

	op.keys = keys
	op.password = password

	return nil
}

// SetUser validates the user identifier. Identity binding is not supported,
// but the argument check runs first so callers fail early on an empty
// identifier.
func (op *Operation) SetUser(userID []byte) error {
	if op.alg == AlgNone || op.state != stateSetup {
		return ErrBadState
	}
	if len(userID) == 0 {
		return ErrInvalidArgument
	}
	return ErrNotSupported
}

// SetPeer validates the peer identifier under the same contract as
// [Operation.SetUser].
func (op *Operation) SetPeer(peerID []byte) error {
	if op.alg == AlgNone || op.state != stateSetup {
		return ErrBadState
	}
	if len(peerID) == 0 {
		return ErrInvalidArgument
	}
	return ErrNotSupported
}

// SetRole records the side this handle plays. JPAKE accepts only
// [RoleClient] and [RoleServer].
func (op *Operation) SetRole(role Role) error {
	if op.alg == AlgNone || op.state != stateSetup {
		return ErrBadState
	}

	switch role {
	case RoleNone, RoleFirst, RoleSecond, RoleClient, RoleServer:
	default:
		return ErrInvalidArgument
	}

	if op.alg == AlgJPAKE {
		if role != RoleClient && role != RoleServer {
			return ErrNotSupported
		}
		op.role = role
		return nil
	}

	return ErrNotSupported
}

// ecjpakeSetup finalizes the engine on the first Output or Input call:
// the role is translated, the password material is read inside a locked
// slot, and the handle moves to the ready state.
func (op *Operation) ecjpakeSetup() error {
	var role ecjpake.Role
	switch op.role {
	case RoleClient:
		role = ecjpake.RoleClient
	case RoleServer:
		role = ecjpake.RoleServer
	default:
		return ErrBadState
	}

	if op.keys == nil || op.password == 0 {
		return ErrBadState
	}

	slot, err := op.keys.AcquireSlot(op.password)
	if err != nil {
		return err
	}
	err = op.ctx.Setup(role, crypto.SHA256, elliptic.P256(), slot.Key())
	slot.Release()

	if err != nil {
		return ecjpakeError(err)
	}

	op.state = stateReady
	return nil
}

// checkSequence enforces agreement between the caller's step and the
// position inside the current round.
func (op *Operation) checkSequence(step Step) error {
	switch op.sequence {
	case seqX1KeyShare, seqX2KeyShare:
		if step != StepKeyShare {
			return ErrBadState
		}
	case seqX1ZKPublic, seqX2ZKPublic:
		if step != StepZKPublic {
			return ErrBadState
		}
	case seqX1ZKProof, seqX2ZKProof:
		if step != StepZKProof {
			return ErrBadState
		}
	default:
		return ErrBadState
	}
	return nil
}

// Output produces the next protocol payload of the current output round
// into output and returns its length.
//
// The whole round is staged at the first key-share call of the round; each
// payload is then sliced out of the staging buffer following its
// length-prefixed framing. A step that does not match the current position
// fails with [ErrBadState] and leaves the handle usable; an output buffer
// shorter than the slice aborts the handle, since the read cursor has no
// consistent recovery point.
func (op *Operation) Output(step Step, output []byte) (int, error) {
	if op.alg == AlgNone || op.state == stateInvalid {
		return 0, ErrBadState
	}
	if len(output) == 0 {
		return 0, ErrInvalidArgument
	}
	if step != StepKeyShare && step != StepZKPublic && step != StepZKProof {
		return 0, ErrInvalidArgument
	}

	if op.state == stateSetup {
		if err := op.ecjpakeSetup(); err != nil {
			op.Abort()
			return 0, err
		}
	}

	if op.state != stateReady &&
		op.state != stateOutputX1X2 &&
		op.state != stateOutputX2S {
		return 0, ErrBadState
	}

	if op.state == stateReady {
		if step != StepKeyShare {
			return 0, ErrBadState
		}

		switch op.outputStep {
		case roundX1X2:
			op.state = stateOutputX1X2
		case roundX2S:
			op.state = stateOutputX2S
		default:
			return 0, ErrBadState
		}

		op.sequence = seqX1KeyShare
	}

	if err := op.checkSequence(step); err != nil {
		return 0, err
	}

	// Stage the whole round at the first key share of the round.
	if op.sequence == seqX1KeyShare {
		var n int
		var err error
		if op.state == stateOutputX1X2 {
			n, err = op.ctx.WriteRoundOne(op.buffer[:], rand.Reader)
		} else {
			n, err = op.ctx.WriteRoundTwo(op.buffer[:], rand.Reader)
		}
		if err != nil {
			op.Abort()
			return 0, ecjpakeError(err)
		}
		op.bufferLength = n
		op.bufferOffset = 0
	}

	// Each payload is framed as a one-byte length followed by that many
	// bytes. The server's X2S key share additionally carries the
	// three-byte curve parameters in front, so its point length lives at
	// offset 3.
	var length int
	if op.state == stateOutputX2S &&
		op.sequence == seqX1KeyShare &&
		op.role == RoleServer {
		length = 3 + int(op.buffer[3]) + 1
	} else {
		length = int(op.buffer[op.bufferOffset]) + 1
	}

	if length > op.bufferLength-op.bufferOffset {
		return 0, ErrDataCorrupt
	}
	if len(output) < length {
		op.Abort()
		return 0, ErrBufferTooSmall
	}

	copy(output, op.buffer[op.bufferOffset:op.bufferOffset+length])
	op.bufferOffset += length

	// Release the staging buffer after the final proof of the round.
	if (op.state == stateOutputX1X2 && op.sequence == seqX2ZKProof) ||
		(op.state == stateOutputX2S && op.sequence == seqX1ZKProof) {
		utils.Zeroize(op.buffer[:])
		op.bufferLength = 0
		op.bufferOffset = 0

		op.state = stateReady
		op.outputStep++
		op.sequence = seqInvalid
	} else {
		op.sequence++
	}

	return length, nil
}

// Input consumes the next protocol payload of the current input round.
//
// Payloads accumulate in the staging buffer and the whole round is handed
// to the engine at the final proof of the round, which is therefore the
// only call where malformed peer data surfaces. A step that does not match
// the current position fails with [ErrBadState] and leaves the handle
// usable; input that no longer fits the staging buffer aborts the handle.
func (op *Operation) Input(step Step, input []byte) error {
	if op.alg == AlgNone || op.state == stateInvalid {
		return ErrBadState
	}
	if len(input) == 0 {
		return ErrInvalidArgument
	}
	if step != StepKeyShare && step != StepZKPublic && step != StepZKProof {
		return ErrInvalidArgument
	}

	if op.state == stateSetup {
		if err := op.ecjpakeSetup(); err != nil {
			op.Abort()
			return err
		}
	}

	if op.state != stateReady &&
		op.state != stateInputX1X2 &&
		op.state != stateInputX4S {
		return ErrBadState
	}

	if op.state == stateReady {
		if step != StepKeyShare {
			return ErrBadState
		}

		switch op.inputStep {
		case roundX1X2:
			op.state = stateInputX1X2
		case roundX2S:
			op.state = stateInputX4S
		default:
			return ErrBadState
		}

		op.sequence = seqX1KeyShare
	}

	if len(input) == 0 || len(input) > BufferSize-op.bufferLength {
		op.Abort()
		return ErrInsufficientMemory
	}

	if err := op.checkSequence(step); err != nil {
		return err
	}

	copy(op.buffer[op.bufferLength:], input)
	op.bufferLength += len(input)

	// Hand the accumulated round to the engine at the final proof. The
	// staging buffer is released whatever the outcome.
	if (op.state == stateInputX1X2 && op.sequence == seqX2ZKProof) ||
		(op.state == stateInputX4S && op.sequence == seqX1ZKProof) {
		var err error
		if op.state == stateInputX1X2 {
			err = op.ctx.ReadRoundOne(op.buffer[:op.bufferLength])
		} else {
			err = op.ctx.ReadRoundTwo(op.buffer[:op.bufferLength])
		}

		utils.Zeroize(op.buffer[:])
		op.bufferLength = 0

		if err != nil {
			op.Abort()
			return ecjpakeError(err)
		}

		op.state = stateReady
		op.inputStep++
		op.sequence = seqInvalid
	} else {
		op.sequence++
	}

	return nil
}

// GetImplicitKey derives the shared secret and feeds it to the derivation
// sink as secret input. The handle is aborted whether or not the sink
// accepts the material, since the key has been consumed either way.
func (op *Operation) GetImplicitKey(output *kdf.Operation) error {
	if op.alg == AlgNone ||
		op.state != stateReady ||
		op.inputStep != roundDerive ||
		op.outputStep != roundDerive {
		return ErrBadState
	}

	n, err := op.ctx.WriteSharedKey(op.buffer[:], rand.Reader)
	if err != nil {
		op.Abort()
		return ecjpakeError(err)
	}
	op.bufferLength = n

	err = output.InputBytes(kdf.InputSecret, op.buffer[:op.bufferLength])

	utils.Zeroize(op.buffer[:])
	op.Abort()

	return err
}

// Abort zeroizes the staging buffer, frees the engine context and resets
// the handle to the freshly initialized state. It is idempotent and safe on
// a handle that was never set up.
func (op *Operation) Abort() error {
	if op.alg == AlgNone {
		return nil
	}

	op.inputStep = roundInvalid
	op.outputStep = roundInvalid
	op.keys = nil
	op.password = 0
	op.role = RoleNone

	utils.Zeroize(op.buffer[:])
	op.bufferLength = 0
	op.bufferOffset = 0

	op.ctx.Free()

	op.alg = AlgNone
	op.state = stateInvalid
	op.sequence = seqInvalid

	return nil
}
