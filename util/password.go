package util

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const argon2Prefix = "$argon2id$"

// passwordParams are the argon2id cost settings. The salt is generated per
// hash and encoded into the result together with the parameters.
var passwordParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// ErrUnknownHashFormat is returned when a stored hash is neither argon2id nor bcrypt.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// HashPassword returns a salted argon2id hash of password.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, passwordParams)
}

// VerifyPassword compares password against an encoded hash in constant time.
// Bcrypt hashes written by the previous system are still accepted.
func VerifyPassword(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return argon2id.ComparePasswordAndHash(password, encodedHash)
	case isBcryptHash(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsRehash reports whether encodedHash should be replaced with a fresh
// argon2id hash after the next successful login.
func NeedsRehash(encodedHash string) bool {
	return !strings.HasPrefix(encodedHash, argon2Prefix)
}

func isBcryptHash(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}
