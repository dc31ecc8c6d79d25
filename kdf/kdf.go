// Package kdf implements the key derivation sink consumed by protocol
// operations: input material is absorbed under labelled steps and derived
// output is expanded with HKDF.
package kdf

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/krish2718/mbedtls/utils"
)

// Algorithm selects the derivation construction.
type Algorithm int

const (
	AlgNone Algorithm = iota

	// HKDFSHA256 is HKDF with SHA-256 as the extract and expand hash.
	HKDFSHA256
)

// InputStep labels the material absorbed into a derivation.
type InputStep int

const (
	// InputSecret is the secret keying material. Accepted exactly once.
	InputSecret InputStep = iota + 1

	// InputSalt is the optional extraction salt.
	InputSalt

	// InputInfo is the optional expansion context.
	InputInfo
)

var (
	// ErrBadState is returned when a call does not fit the operation's
	// lifecycle.
	ErrBadState = errors.New("kdf: bad state")

	// ErrInvalidArgument is returned for an unknown algorithm or step.
	ErrInvalidArgument = errors.New("kdf: invalid argument")
)

// Operation absorbs derivation inputs and expands the output keystream. The
// zero value is ready for [Operation.Setup].
type Operation struct {
	alg    Algorithm
	secret []byte
	salt   []byte
	info   []byte
	expand io.Reader
}

// Setup selects the derivation algorithm.
func (op *Operation) Setup(alg Algorithm) error {
	if op.alg != AlgNone {
		return ErrBadState
	}
	if alg != HKDFSHA256 {
		return ErrInvalidArgument
	}
	op.alg = alg
	return nil
}

// InputBytes absorbs data under the given step. The secret may only be
// provided once, and no input is accepted after output has been read.
func (op *Operation) InputBytes(step InputStep, data []byte) error {
	if op.alg == AlgNone || op.expand != nil {
		return ErrBadState
	}
	switch step {
	case InputSecret:
		if op.secret != nil {
			return ErrBadState
		}
		op.secret = append([]byte(nil), data...)
	case InputSalt:
		op.salt = append(op.salt, data...)
	case InputInfo:
		op.info = append(op.info, data...)
	default:
		return ErrInvalidArgument
	}
	return nil
}

// ReadBytes fills out with derived output, expanding from the absorbed
// secret on first use.
func (op *Operation) ReadBytes(out []byte) error {
	if op.alg == AlgNone || op.secret == nil {
		return ErrBadState
	}
	if op.expand == nil {
		op.expand = hkdf.New(sha256.New, op.secret, op.salt, op.info)
	}
	if _, err := io.ReadFull(op.expand, out); err != nil {
		return fmt.Errorf("kdf: expand: %w", err)
	}
	return nil
}

// Abort zeroizes the absorbed secret and resets the operation.
func (op *Operation) Abort() {
	utils.Zeroize(op.secret)
	op.secret = nil
	op.salt = nil
	op.info = nil
	op.expand = nil
	op.alg = AlgNone
}
