// Package codegen provides short-code generation functionality.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
)

// Alphabet is the 62-symbol alphanumeric alphabet short codes are drawn from.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator generates opaque short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator over the 62-symbol alphabet.
// It is safe for concurrent use.
type base62Generator struct{}

// NewBase62 returns a new base62 code generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// rejectAbove is the largest multiple of len(Alphabet) that fits in a byte.
// Bytes at or above it are discarded so every symbol is equally likely.
const rejectAbove = 248

// Generate returns a uniformly random base62 string of the given length,
// drawn from a cryptographically secure source.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				return string(out), nil
			}
		}
	}
}
