package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Length is the number of digits in a password-reset code.
const Length = 8

var upperBound = new(big.Int).Exp(big.NewInt(10), big.NewInt(Length), nil)

// Generate returns a uniformly random numeric code of Length digits,
// zero-padded.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("generate otp failed: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n), nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Valid reports whether s looks like a code: exactly Length ASCII digits.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
