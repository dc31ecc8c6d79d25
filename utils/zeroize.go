// Package utils implements small helpers shared across the module.
package utils

import (
	"runtime"

	"golang.org/x/exp/constraints"
)

// Zeroize overwrites s with zeros. The function is kept opaque to the
// compiler so the stores cannot be elided when s is about to go out of
// scope.
//
//go:noinline
func Zeroize[T constraints.Integer](s []T) {
	for i := range s {
		s[i] = 0
	}
	runtime.KeepAlive(s)
}
