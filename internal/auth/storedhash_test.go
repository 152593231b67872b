// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mertcagri25/gundem/internal/auth"
)

func TestParseStoredHash(t *testing.T) {
	t.Run("untagged string is legacy", func(t *testing.T) {
		h := auth.ParseStoredHash("jGl25bVBBBW96Qi9Te4V37Fnqchz/Eu4qB9vKrRIqRg=")
		assert.Equal(t, auth.SchemeLegacySHA256, h.Scheme())
	})

	t.Run("empty string is legacy", func(t *testing.T) {
		h := auth.ParseStoredHash("")
		assert.Equal(t, auth.SchemeLegacySHA256, h.Scheme())
	})

	t.Run("garbage is legacy", func(t *testing.T) {
		h := auth.ParseStoredHash("not a hash at all!!!")
		assert.Equal(t, auth.SchemeLegacySHA256, h.Scheme())
	})

	t.Run("tagged string is strong scheme", func(t *testing.T) {
		hasher := auth.NewPBKDF2Hasher()
		stored, err := hasher.Hash("password123")
		assert.NoError(t, err)

		h := auth.ParseStoredHash(stored)
		assert.Equal(t, auth.SchemePBKDF2, h.Scheme())
	})

	t.Run("tagged but malformed stays strong scheme", func(t *testing.T) {
		for _, raw := range []string{
			"PBKDF2|",
			"PBKDF2|100000",
			"PBKDF2|notanumber|c2FsdA==|aGFzaA==",
			"PBKDF2|-1|c2FsdA==|aGFzaA==",
			"PBKDF2|100000|!!!bad!!!|aGFzaA==",
			"PBKDF2|100000|c2FsdA==|!!!bad!!!",
			"PBKDF2|100000|c2FsdA==|aGFzaA==|extra",
		} {
			h := auth.ParseStoredHash(raw)
			assert.Equal(t, auth.SchemePBKDF2, h.Scheme(), "raw: %s", raw)
		}
	})

	t.Run("String returns original serialization", func(t *testing.T) {
		raw := "PBKDF2|100000|c2FsdA==|aGFzaA=="
		assert.Equal(t, raw, auth.ParseStoredHash(raw).String())
	})
}

func TestFormatPBKDF2(t *testing.T) {
	out := auth.FormatPBKDF2(100_000, []byte("salt"), []byte("hash"))
	assert.Equal(t, "PBKDF2|100000|c2FsdA==|aGFzaA==", out)

	// Round-trips through the parser as a well-formed strong-scheme value
	h := auth.ParseStoredHash(out)
	assert.Equal(t, auth.SchemePBKDF2, h.Scheme())
}

func TestHashSchemeString(t *testing.T) {
	assert.Equal(t, "pbkdf2", auth.SchemePBKDF2.String())
	assert.Equal(t, "legacy-sha256", auth.SchemeLegacySHA256.String())
}
