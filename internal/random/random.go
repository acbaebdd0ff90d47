// Package random generates the tokens used for CSP nonces, request ids and database names.
package random

import (
	"crypto/rand"
	"github.com/myrjola/resqlink/internal/errors"
	"math/big"
)

// Alphabet holds the characters a token is drawn from. Letters only, so tokens are safe in HTML
// attributes, headers and SQLite URIs without escaping.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Letters returns n cryptographically random ASCII letters.
func Letters(n uint) (string, error) {
	token := make([]byte, n)
	for i := range token {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", errors.Wrap(err, "generate random letter")
		}
		token[i] = Alphabet[idx.Int64()]
	}
	return string(token), nil
}
