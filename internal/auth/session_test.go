// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertcagri25/gundem/internal/auth"
)

func TestNewSession(t *testing.T) {
	userID := ulid.Make()
	expiry := time.Now().Add(auth.SessionTTL)

	t.Run("creates valid session", func(t *testing.T) {
		session, err := auth.NewSession(userID, "tokenhash", "Mozilla/5.0", "192.0.2.1", false, expiry)
		require.NoError(t, err)

		assert.NotEqual(t, ulid.ULID{}, session.ID)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, "tokenhash", session.TokenHash)
		assert.Equal(t, "Mozilla/5.0", session.UserAgent)
		assert.Equal(t, "192.0.2.1", session.IPAddress)
		assert.False(t, session.Persistent)
		assert.Equal(t, expiry, session.ExpiresAt)
		assert.False(t, session.CreatedAt.IsZero())
		assert.False(t, session.LastSeenAt.IsZero())
	})

	t.Run("user agent and ip are optional", func(t *testing.T) {
		session, err := auth.NewSession(userID, "tokenhash", "", "", true, expiry)
		require.NoError(t, err)
		assert.True(t, session.Persistent)
	})

	t.Run("rejects zero user ID", func(t *testing.T) {
		_, err := auth.NewSession(ulid.ULID{}, "tokenhash", "", "", false, expiry)
		assert.Error(t, err)
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession(userID, "", "", "", false, expiry)
		assert.Error(t, err)
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		_, err := auth.NewSession(userID, "tokenhash", "", "", false, time.Time{})
		assert.Error(t, err)
	})
}

func TestSessionExpiry(t *testing.T) {
	userID := ulid.Make()

	t.Run("future expiry is not expired", func(t *testing.T) {
		session, err := auth.NewSession(userID, "tokenhash", "", "", false, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, session.IsExpired())
	})

	t.Run("past expiry is expired", func(t *testing.T) {
		session, err := auth.NewSession(userID, "tokenhash", "", "", false, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, session.IsExpired())
	})

	t.Run("IsExpiredAt is deterministic", func(t *testing.T) {
		expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		session, err := auth.NewSession(userID, "tokenhash", "", "", false, expiry)
		require.NoError(t, err)

		assert.False(t, session.IsExpiredAt(expiry.Add(-time.Second)))
		assert.False(t, session.IsExpiredAt(expiry))
		assert.True(t, session.IsExpiredAt(expiry.Add(time.Second)))
	})
}

func TestGenerateSessionToken(t *testing.T) {
	t.Run("token and hash have expected shape", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		assert.Len(t, token, auth.SessionTokenBytes*2)
		assert.Len(t, hash, 64)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		token1, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		token2, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	t.Run("matching token verifies", func(t *testing.T) {
		ok, err := auth.VerifySessionToken(token, hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong token fails", func(t *testing.T) {
		ok, err := auth.VerifySessionToken("deadbeef", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty token errors", func(t *testing.T) {
		_, err := auth.VerifySessionToken("", hash)
		assert.Error(t, err)
	})

	t.Run("empty hash errors", func(t *testing.T) {
		_, err := auth.VerifySessionToken(token, "")
		assert.Error(t, err)
	})
}
