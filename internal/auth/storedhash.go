// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// HashScheme identifies the credential scheme of a stored hash.
type HashScheme int

const (
	// SchemeLegacySHA256 is the pre-migration scheme: a raw base64 SHA-256
	// digest of the UTF-8 password, no salt, no parameters.
	SchemeLegacySHA256 HashScheme = iota

	// SchemePBKDF2 is the strong scheme: PBKDF2-HMAC-SHA256 with explicit
	// iteration count and random salt.
	SchemePBKDF2
)

// String returns the scheme name.
func (s HashScheme) String() string {
	if s == SchemePBKDF2 {
		return "pbkdf2"
	}
	return "legacy-sha256"
}

// pbkdf2Tag prefixes every strong-scheme serialization. The tag alone decides
// scheme dispatch; verification never inspects the caller's expectation.
const pbkdf2Tag = "PBKDF2|"

// StoredHash is the parsed form of a persisted credential. It is produced
// once at the engine boundary so verification logic never re-parses strings
// mid-algorithm.
type StoredHash struct {
	raw    string
	scheme HashScheme

	// Strong-scheme fields. wellFormed is false when the string carries the
	// PBKDF2 tag but the remainder does not parse; such values never verify.
	iterations int
	salt       []byte
	key        []byte
	wellFormed bool

	// Legacy field: the raw base64 digest as stored.
	digest string
}

// ParseStoredHash parses a persisted credential string. It never fails:
// any string without the strong-scheme tag (including empty or garbage) is a
// legacy digest, and a tagged-but-malformed string becomes a strong-scheme
// value that cannot verify.
func ParseStoredHash(raw string) StoredHash {
	if !strings.HasPrefix(raw, pbkdf2Tag) {
		return StoredHash{raw: raw, scheme: SchemeLegacySHA256, digest: raw}
	}

	h := StoredHash{raw: raw, scheme: SchemePBKDF2}

	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return h
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return h
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return h
	}
	key, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return h
	}

	h.iterations = iterations
	h.salt = salt
	h.key = key
	h.wellFormed = true
	return h
}

// FormatPBKDF2 serializes strong-scheme parameters into the wire format
// "PBKDF2|<iterations>|<salt b64>|<key b64>".
func FormatPBKDF2(iterations int, salt, key []byte) string {
	return fmt.Sprintf("%s%d|%s|%s",
		pbkdf2Tag,
		iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	)
}

// Scheme reports which credential scheme the stored value carries.
func (h StoredHash) Scheme() HashScheme {
	return h.scheme
}

// String returns the original serialization unchanged.
func (h StoredHash) String() string {
	return h.raw
}
