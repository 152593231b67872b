// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mertcagri25/gundem/internal/auth"
	"github.com/mertcagri25/gundem/internal/auth/mocks"
	"github.com/mertcagri25/gundem/pkg/errutil"
)

type serviceFixture struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	hasher   *mocks.MockPasswordHasher
	service  *auth.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	users := mocks.NewMockUserRepository(t)
	sessions := mocks.NewMockSessionRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)

	issuer, err := auth.NewIssuer(sessions, auth.SessionTTL)
	require.NoError(t, err)

	service, err := auth.NewService(users, issuer, hasher)
	require.NoError(t, err)

	return &serviceFixture{users: users, sessions: sessions, hasher: hasher, service: service}
}

func storedUser(t *testing.T, hash string) *auth.User {
	t.Helper()
	user, err := auth.NewUser("alice", "alice@example.com", hash, auth.RoleUser)
	require.NoError(t, err)
	return user
}

func TestNewService(t *testing.T) {
	sessions := &mocks.MockSessionRepository{}
	issuer, err := auth.NewIssuer(sessions, auth.SessionTTL)
	require.NoError(t, err)

	t.Run("requires users repository", func(t *testing.T) {
		_, err := auth.NewService(nil, issuer, &mocks.MockPasswordHasher{})
		assert.Error(t, err)
	})

	t.Run("requires issuer", func(t *testing.T) {
		_, err := auth.NewService(&mocks.MockUserRepository{}, nil, &mocks.MockPasswordHasher{})
		assert.Error(t, err)
	})

	t.Run("requires hasher", func(t *testing.T) {
		_, err := auth.NewService(&mocks.MockUserRepository{}, issuer, nil)
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues claims and token", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, "PBKDF2|100000|c2FsdA==|aGFzaA==")

		f.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		f.hasher.On("Verify", "correct horse", user.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", user.PasswordHash).Return(false)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		claims, token, err := f.service.Login(ctx, "alice", "correct horse", true, "Mozilla/5.0", "192.0.2.1")
		require.NoError(t, err)

		assert.Equal(t, user.ID, claims.SubjectID)
		assert.Equal(t, "alice", claims.Username)
		assert.True(t, claims.Persistent)
		assert.NotEmpty(t, token)
	})

	t.Run("blank input rejected before any lookup", func(t *testing.T) {
		f := newServiceFixture(t)

		_, _, err := f.service.Login(ctx, "", "password", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_INPUT")

		_, _, err = f.service.Login(ctx, "alice", "", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_INPUT")
	})

	t.Run("wrong password is invalid credentials", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, "PBKDF2|100000|c2FsdA==|aGFzaA==")

		f.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		f.hasher.On("Verify", "wrong", user.PasswordHash).Return(false)

		_, _, err := f.service.Login(ctx, "alice", "wrong", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown user gets same error and a dummy verification", func(t *testing.T) {
		f := newServiceFixture(t)

		f.users.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		// Verification still runs, against a strong-scheme shaped dummy hash
		f.hasher.On("Verify", "password", mock.MatchedBy(func(stored string) bool {
			return strings.HasPrefix(stored, "PBKDF2|")
		})).Return(false)

		_, _, err := f.service.Login(ctx, "ghost", "password", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("lookup failure is not invalid credentials", func(t *testing.T) {
		f := newServiceFixture(t)

		f.users.On("GetByUsername", ctx, "alice").Return(nil, assert.AnError)

		_, _, err := f.service.Login(ctx, "alice", "password", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("legacy hash upgraded on successful login", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, legacyAdminDigest)

		f.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		f.hasher.On("Verify", "admin", legacyAdminDigest).Return(true)
		f.hasher.On("NeedsUpgrade", legacyAdminDigest).Return(true)
		f.hasher.On("Hash", "admin").Return("PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5", nil)
		f.users.On("UpdatePassword", ctx, user.ID, "PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5").Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, _, err := f.service.Login(ctx, "alice", "admin", false, "", "")
		require.NoError(t, err)

		assert.Equal(t, "PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5", user.PasswordHash)
	})

	t.Run("failed upgrade write never fails the login", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, legacyAdminDigest)

		f.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		f.hasher.On("Verify", "admin", legacyAdminDigest).Return(true)
		f.hasher.On("NeedsUpgrade", legacyAdminDigest).Return(true)
		f.hasher.On("Hash", "admin").Return("PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5", nil)
		f.users.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).Return(assert.AnError)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		claims, token, err := f.service.Login(ctx, "alice", "admin", false, "", "")
		require.NoError(t, err)
		assert.NotNil(t, claims)
		assert.NotEmpty(t, token)

		// The stored hash stays legacy; the next login retries the upgrade
		assert.Equal(t, legacyAdminDigest, user.PasswordHash)
	})

	t.Run("session persist failure fails the login", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, "PBKDF2|100000|c2FsdA==|aGFzaA==")

		f.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		f.hasher.On("Verify", "password", user.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", user.PasswordHash).Return(false)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(assert.AnError)

		_, _, err := f.service.Login(ctx, "alice", "password", false, "", "")
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success creates user and issues session", func(t *testing.T) {
		f := newServiceFixture(t)

		f.users.On("GetByUsername", ctx, "bob").Return(nil, auth.ErrNotFound)
		f.users.On("GetByEmail", ctx, "bob@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "longenough").Return("PBKDF2|100000|c2FsdA==|aGFzaA==", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "bob" && u.Email == "bob@example.com" && u.Role == auth.RoleUser
		})).Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		claims, token, err := f.service.Register(ctx, "bob", "bob@example.com", "longenough", "longenough", false, "", "")
		require.NoError(t, err)

		assert.Equal(t, "bob", claims.Username)
		assert.Equal(t, auth.RoleUser, claims.Role)
		assert.NotEmpty(t, token)
	})

	t.Run("validation short-circuits in order", func(t *testing.T) {
		// Each case trips exactly one check; later checks must not run, which
		// the mocks enforce by having no expectations set.
		tests := []struct {
			name     string
			username string
			email    string
			password string
			confirm  string
			wantCode string
		}{
			{"blank username", "", "b@example.com", "longenough", "longenough", "AUTH_INVALID_INPUT"},
			{"blank email", "bob", "", "longenough", "longenough", "AUTH_INVALID_INPUT"},
			{"blank password", "bob", "b@example.com", "", "", "AUTH_INVALID_INPUT"},
			{"mismatch beats length", "bob", "b@example.com", "short", "other", "AUTH_PASSWORD_MISMATCH"},
			{"too short", "bob", "b@example.com", "short12", "short12", "AUTH_PASSWORD_TOO_WEAK"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newServiceFixture(t)
				_, _, err := f.service.Register(ctx, tt.username, tt.email, tt.password, tt.confirm, false, "", "")
				errutil.AssertErrorCode(t, err, tt.wantCode)
			})
		}
	})

	t.Run("boundary length password accepted", func(t *testing.T) {
		f := newServiceFixture(t)
		password := strings.Repeat("x", auth.MinPasswordLength)

		f.users.On("GetByUsername", ctx, "bob").Return(nil, auth.ErrNotFound)
		f.users.On("GetByEmail", ctx, "bob@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", password).Return("PBKDF2|100000|c2FsdA==|aGFzaA==", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, _, err := f.service.Register(ctx, "bob", "bob@example.com", password, password, false, "", "")
		assert.NoError(t, err)
	})

	t.Run("duplicate username checked before email", func(t *testing.T) {
		f := newServiceFixture(t)
		existing := storedUser(t, "PBKDF2|100000|c2FsdA==|aGFzaA==")

		f.users.On("GetByUsername", ctx, "alice").Return(existing, nil)

		_, _, err := f.service.Register(ctx, "alice", "new@example.com", "longenough", "longenough", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_DUPLICATE_USERNAME")
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		existing := storedUser(t, "PBKDF2|100000|c2FsdA==|aGFzaA==")

		f.users.On("GetByUsername", ctx, "bob").Return(nil, auth.ErrNotFound)
		f.users.On("GetByEmail", ctx, "alice@example.com").Return(existing, nil)

		_, _, err := f.service.Register(ctx, "bob", "alice@example.com", "longenough", "longenough", false, "", "")
		errutil.AssertErrorCode(t, err, "AUTH_DUPLICATE_EMAIL")
	})

	t.Run("create race maps constraint errors to duplicates", func(t *testing.T) {
		tests := []struct {
			name      string
			createErr error
			wantCode  string
		}{
			{"email constraint", auth.ErrDuplicateEmail, "AUTH_DUPLICATE_EMAIL"},
			{"username constraint", auth.ErrDuplicateUsername, "AUTH_DUPLICATE_USERNAME"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newServiceFixture(t)

				f.users.On("GetByUsername", ctx, "bob").Return(nil, auth.ErrNotFound)
				f.users.On("GetByEmail", ctx, "bob@example.com").Return(nil, auth.ErrNotFound)
				f.hasher.On("Hash", "longenough").Return("PBKDF2|100000|c2FsdA==|aGFzaA==", nil)
				f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(tt.createErr)

				_, _, err := f.service.Register(ctx, "bob", "bob@example.com", "longenough", "longenough", false, "", "")
				errutil.AssertErrorCode(t, err, tt.wantCode)
			})
		}
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success rehashes and persists", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, legacyAdminDigest)

		f.users.On("GetByID", ctx, user.ID).Return(user, nil)
		f.hasher.On("Verify", "oldpassword", legacyAdminDigest).Return(true)
		f.hasher.On("Hash", "newpassword").Return("PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5", nil)
		f.users.On("UpdatePassword", ctx, user.ID, "PBKDF2|100000|bmV3c2FsdA==|bmV3a2V5").Return(nil)

		err := f.service.ChangePassword(ctx, user.ID, "oldpassword", "newpassword", "newpassword")
		assert.NoError(t, err)
	})

	t.Run("blank input rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.ChangePassword(ctx, ulid.Make(), "", "newpassword", "newpassword")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_INPUT")
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.ChangePassword(ctx, ulid.Make(), "old", "newpassword", "different")
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_MISMATCH")
	})

	t.Run("too short rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.ChangePassword(ctx, ulid.Make(), "old", "short", "short")
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_WEAK")
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture(t)
		userID := ulid.Make()

		f.users.On("GetByID", ctx, userID).Return(nil, auth.ErrNotFound)

		err := f.service.ChangePassword(ctx, userID, "oldpassword", "newpassword", "newpassword")
		errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newServiceFixture(t)
		user := storedUser(t, legacyAdminDigest)

		f.users.On("GetByID", ctx, user.ID).Return(user, nil)
		f.hasher.On("Verify", "wrong", legacyAdminDigest).Return(false)

		err := f.service.ChangePassword(ctx, user.ID, "wrong", "newpassword", "newpassword")
		errutil.AssertErrorCode(t, err, "AUTH_INCORRECT_CURRENT_PASSWORD")
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the session behind the token", func(t *testing.T) {
		f := newServiceFixture(t)
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session, err := auth.NewSession(ulid.Make(), hash, "", "", false, time.Now().Add(time.Hour))
		require.NoError(t, err)

		f.sessions.On("GetByTokenHash", ctx, hash).Return(session, nil)
		f.sessions.On("Delete", ctx, session.ID).Return(nil)

		assert.NoError(t, f.service.Logout(ctx, token))
	})

	t.Run("empty token rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.Logout(ctx, "")
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_EMPTY")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newServiceFixture(t)

		f.sessions.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		err := f.service.Logout(ctx, "deadbeef")
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session updates last seen", func(t *testing.T) {
		f := newServiceFixture(t)
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session, err := auth.NewSession(ulid.Make(), hash, "", "", false, time.Now().Add(time.Hour))
		require.NoError(t, err)

		f.sessions.On("GetByTokenHash", ctx, hash).Return(session, nil)
		f.sessions.On("UpdateLastSeen", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		got, err := f.service.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
	})

	t.Run("expired session rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session, err := auth.NewSession(ulid.Make(), hash, "", "", false, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		f.sessions.On("GetByTokenHash", ctx, hash).Return(session, nil)

		_, err = f.service.ValidateSession(ctx, token)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		f := newServiceFixture(t)

		f.sessions.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		_, err := f.service.ValidateSession(ctx, "deadbeef")
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("last seen failure does not fail validation", func(t *testing.T) {
		f := newServiceFixture(t)
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session, err := auth.NewSession(ulid.Make(), hash, "", "", false, time.Now().Add(time.Hour))
		require.NoError(t, err)

		f.sessions.On("GetByTokenHash", ctx, hash).Return(session, nil)
		f.sessions.On("UpdateLastSeen", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(assert.AnError)

		_, err = f.service.ValidateSession(ctx, token)
		assert.NoError(t, err)
	})
}
