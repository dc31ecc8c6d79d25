package pake

import (
	"errors"

	"github.com/krish2718/mbedtls/ecjpake"
	"github.com/krish2718/mbedtls/mod"
)

var (
	// ErrInvalidArgument is returned when an argument violates the
	// contract of the call.
	ErrInvalidArgument = errors.New("pake: invalid argument")

	// ErrBadState is returned when a call does not fit the current state
	// of the handle.
	ErrBadState = errors.New("pake: bad state")

	// ErrNotSupported is returned for a cipher suite, role or feature
	// outside the single supported instantiation.
	ErrNotSupported = errors.New("pake: not supported")

	// ErrNotPermitted is returned when the password key's usage policy
	// forbids derivation.
	ErrNotPermitted = errors.New("pake: not permitted")

	// ErrBufferTooSmall is returned when the caller's output buffer cannot
	// hold the current slice.
	ErrBufferTooSmall = errors.New("pake: buffer too small")

	// ErrInsufficientMemory is returned when input no longer fits the
	// staging buffer.
	ErrInsufficientMemory = errors.New("pake: insufficient memory")

	// ErrDataInvalid is returned when the engine rejects a round blob.
	ErrDataInvalid = errors.New("pake: data invalid")

	// ErrDataCorrupt is returned when the staged round bytes are not
	// consistent with their framing.
	ErrDataCorrupt = errors.New("pake: data corrupt")

	// ErrCorruptionDetected is returned when an internal consistency check
	// fails.
	ErrCorruptionDetected = errors.New("pake: corruption detected")

	// ErrGenericError is returned for engine failures with no more
	// specific translation.
	ErrGenericError = errors.New("pake: generic error")
)

// ecjpakeError translates an engine failure into the operation's error
// space. Substrate errors surfacing through the engine translate the same
// way as their engine counterparts.
func ecjpakeError(err error) error {
	switch {
	case errors.Is(err, ecjpake.ErrBadInput),
		errors.Is(err, mod.ErrBadInput),
		errors.Is(err, ecjpake.ErrInvalidKey),
		errors.Is(err, ecjpake.ErrVerifyFailed):
		return ErrDataInvalid
	case errors.Is(err, ecjpake.ErrBufferTooSmall),
		errors.Is(err, mod.ErrBufferTooSmall):
		return ErrBufferTooSmall
	case errors.Is(err, ecjpake.ErrFeatureUnavailable):
		return ErrNotSupported
	case errors.Is(err, ecjpake.ErrCorruptionDetected),
		errors.Is(err, mod.ErrCorruptionDetected):
		return ErrCorruptionDetected
	default:
		return ErrGenericError
	}
}
