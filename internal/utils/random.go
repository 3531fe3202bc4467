package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	digits = "0123456789"
	// no 0/O, 1/l/I so temporary passwords survive being read aloud
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
)

// GenerateNumericCode returns a random decimal string of the given length.
func GenerateNumericCode(length int) (string, error) {
	return randomFrom(digits, length)
}

// GenerateTemporaryPassword returns a random password of the given length.
func GenerateTemporaryPassword(length int) (string, error) {
	return randomFrom(passwordAlphabet, length)
}

func randomFrom(alphabet string, length int) (string, error) {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}
