// Package token issues the single-use email-link tokens.
package token

import (
	"crypto/rand"
	"math/big"
)

const (
	Length   = 16
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var alphabetSize = big.NewInt(int64(len(alphabet)))

// New returns a token drawn uniformly over the 62-character alphanumeric
// alphabet.
func New() (string, error) {
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Pair returns a main and co token. When same is set both values are equal,
// so one link completes every phase for a single user.
func Pair(same bool) (main, co string, err error) {
	main, err = New()
	if err != nil {
		return "", "", err
	}
	if same {
		return main, main, nil
	}
	co, err = New()
	if err != nil {
		return "", "", err
	}
	return main, co, nil
}
