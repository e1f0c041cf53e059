package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hex string from size random bytes;
// the result is twice as long. Used for opaque refresh tokens.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
