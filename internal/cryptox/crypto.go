// Package cryptox derives and checks password hashes.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/filestore/internal/common"
	"golang.org/x/crypto/argon2"
)

const SaltSize = 32

// NewSalt returns a random per-user salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives an argon2id hash of password with salt.
func HashPassword(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// CheckPassword reports whether candidate hashes to hash under salt.
// The comparison runs in constant time.
func CheckPassword(candidate, salt, hash []byte) bool {
	derived := HashPassword(candidate, salt)
	defer common.WipeByteArray(derived)
	return subtle.ConstantTimeCompare(derived, hash) == 1
}
