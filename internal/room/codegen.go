package room

import (
	"crypto/rand"
)

const (
	DefaultCodeLength = 9
	codeAttempts      = 5
	codeAlphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeGenerator produces a candidate room id of length n.
type CodeGenerator func(n int) (string, error)

// RandomCode returns n lowercase alphanumerics from crypto/rand.
func RandomCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
