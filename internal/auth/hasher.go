// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters for the strong scheme. The iteration count is part of the
// serialized hash, so raising it later upgrades new hashes without breaking
// verification of old ones.
const (
	// MinHashIterations is the floor for configured iteration counts.
	MinHashIterations = 100_000

	hashSaltLen = 16 // salt length in bytes
	hashKeyLen  = 32 // derived key length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification across the two
// coexisting credential schemes.
type PasswordHasher interface {
	// Hash produces a strong-scheme hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the stored hash. It dispatches
	// on the stored value's own scheme tag and fails closed: malformed or
	// empty stored values return false, never an error.
	Verify(password, stored string) bool

	// NeedsUpgrade returns true if the stored hash is not strong-scheme.
	NeedsUpgrade(stored string) bool
}

// PBKDF2Hasher implements PasswordHasher using PBKDF2-HMAC-SHA256, with a
// legacy fallback that verifies raw base64 SHA-256 digests during the
// scheme migration.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2Hasher with the default iteration count.
func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{iterations: MinHashIterations}
}

// NewPBKDF2HasherWithIterations creates a PBKDF2Hasher with a configured
// iteration count, clamped to MinHashIterations.
func NewPBKDF2HasherWithIterations(iterations int) *PBKDF2Hasher {
	if iterations < MinHashIterations {
		iterations = MinHashIterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

// Hash produces a strong-scheme hash of the password. Salt randomness
// guarantees two calls on the same password never produce the same output.
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, hashKeyLen, sha256.New)

	return FormatPBKDF2(h.iterations, salt, key), nil
}

// Verify checks the password against the stored hash, dispatching on the
// parsed scheme tag only.
func (h *PBKDF2Hasher) Verify(password, stored string) bool {
	if stored == "" {
		return false
	}

	parsed := ParseStoredHash(stored)
	switch parsed.Scheme() {
	case SchemePBKDF2:
		if !parsed.wellFormed {
			return false
		}
		computed := pbkdf2.Key([]byte(password), parsed.salt, parsed.iterations, len(parsed.key), sha256.New)
		return subtle.ConstantTimeCompare(computed, parsed.key) == 1
	default:
		// The legacy scheme keeps its original direct comparison; it exists
		// only for the migration window and is removed by rehash-on-login.
		digest := sha256.Sum256([]byte(password))
		return parsed.digest == base64.StdEncoding.EncodeToString(digest[:])
	}
}

// NeedsUpgrade returns true if the stored hash is not strong-scheme.
func (h *PBKDF2Hasher) NeedsUpgrade(stored string) bool {
	return ParseStoredHash(stored).Scheme() != SchemePBKDF2
}

// Compile-time interface check.
var _ PasswordHasher = (*PBKDF2Hasher)(nil)
