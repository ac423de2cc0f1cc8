package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plaintext using bcrypt with a per-call random salt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// VerifyPassword reports whether plaintext matches the stored digest.
// A malformed digest yields false rather than an error.
func VerifyPassword(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
