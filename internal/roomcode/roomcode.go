package roomcode

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"strings"
)

const (
	// Length is the length of generated room codes.
	Length = 6

	// Chars are the characters used for room codes, excluding ambiguous ones.
	Chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Generate creates a random room code.
func Generate() string {
	code := make([]byte, Length)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(Chars))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = Chars[rand.Intn(len(Chars))]
			continue
		}
		code[i] = Chars[n.Int64()]
	}
	return string(code)
}

// Normalize uppercases a user-entered room code and trims whitespace.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the right length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Chars, rune(code[i])) {
			return false
		}
	}
	return true
}
