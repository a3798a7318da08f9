// Package otp generates the fixed-length numeric codes sent by email to
// prove control of an address.
package otp

import (
	"crypto/rand"
	"fmt"
)

const DefaultLength = 6

// Generate returns a code of n decimal digits drawn from a
// cryptographically strong source.
func Generate(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("otp: read random: %w", err)
	}
	digits := make([]byte, n)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
