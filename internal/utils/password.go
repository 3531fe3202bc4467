package utils

import "golang.org/x/crypto/bcrypt"

// bcryptCost is lowered by tests through SetBcryptCost.
var bcryptCost = 12

// SetBcryptCost overrides the hashing cost. Only tests should call this.
func SetBcryptCost(cost int) {
	bcryptCost = cost
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
