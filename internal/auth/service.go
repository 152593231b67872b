// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length for registration
// and password changes.
const MinPasswordLength = 8

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: password verification still runs so response time stays flat.
// This is NOT a real credential - it is a fake hash that never matches.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "PBKDF2|100000|AAAAAAAAAAAAAAAAAAAAAA==|AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// Service provides local credential operations: login, registration,
// password change, and logout.
type Service struct {
	users  UserRepository
	issuer *Issuer
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, issuer *Issuer, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, issuer, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, issuer *Issuer, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("session issuer is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{users: users, issuer: issuer, hasher: hasher, logger: logger}, nil
}

// Login authenticates a user and issues session claims.
//
// Absence of the username and a wrong password return the same error so the
// endpoint cannot be used for username enumeration, and verification runs
// against a dummy hash when the user is unknown to keep timing flat.
//
// A legacy stored hash is upgraded to the strong scheme before the session is
// issued. The upgrade write is best-effort relative to the login decision: a
// persistence failure is logged and counted but never fails a correct login.
func (s *Service) Login(ctx context.Context, username, password string, persistent bool, userAgent, ipAddress string) (*SessionClaims, string, error) {
	if username == "" || password == "" {
		RecordLogin(OutcomeInvalidInput)
		return nil, "", oops.Code("AUTH_INVALID_INPUT").Errorf("username and password are required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep verifying against the dummy hash below.
	default:
		RecordLogin(OutcomeError)
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	valid := s.hasher.Verify(password, targetHash)
	if !userExists || !valid {
		RecordLogin(OutcomeInvalidCredentials)
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	claims, _, token, err := s.issuer.Issue(ctx, user, persistent, userAgent, ipAddress)
	if err != nil {
		RecordLogin(OutcomeError)
		return nil, "", err
	}

	RecordLogin(OutcomeSuccess)
	return claims, token, nil
}

// upgradeHash replaces a legacy stored hash with a strong-scheme hash.
// Failures are surfaced through the log and the upgrade metric, never
// through the login result: credential correctness was already decided.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		RecordHashUpgrade("failure")
		s.logger.Warn("credential upgrade hash failed",
			"user_id", user.ID.String(),
			"error", err)
		return
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		RecordHashUpgrade("failure")
		s.logger.Warn("credential upgrade write failed, login proceeds",
			"user_id", user.ID.String(),
			"error", err)
		return
	}

	user.PasswordHash = newHash
	RecordHashUpgrade("success")
}

// Register creates a new standard-role account and issues a session
// (auto-login). Validation short-circuits on the first failing check.
func (s *Service) Register(ctx context.Context, username, email, password, confirmPassword string, persistent bool, userAgent, ipAddress string) (*SessionClaims, string, error) {
	if username == "" || email == "" || password == "" {
		RecordRegistration(OutcomeInvalidInput)
		return nil, "", oops.Code("AUTH_INVALID_INPUT").Errorf("username, email and password are required")
	}
	if password != confirmPassword {
		RecordRegistration(OutcomeRejected)
		return nil, "", oops.Code("AUTH_PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	if len(password) < MinPasswordLength {
		RecordRegistration(OutcomeRejected)
		return nil, "", oops.Code("AUTH_PASSWORD_TOO_WEAK").
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		RecordRegistration(OutcomeRejected)
		return nil, "", oops.Code("AUTH_DUPLICATE_USERNAME").Wrap(ErrDuplicateUsername)
	} else if !errors.Is(err, ErrNotFound) {
		RecordRegistration(OutcomeError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		RecordRegistration(OutcomeRejected)
		return nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(ErrDuplicateEmail)
	} else if !errors.Is(err, ErrNotFound) {
		RecordRegistration(OutcomeError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		RecordRegistration(OutcomeError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash, RoleUser)
	if err != nil {
		RecordRegistration(OutcomeError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		// Two concurrent registrations can pass the lookups above; the
		// repository's unique constraints decide the winner.
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			RecordRegistration(OutcomeRejected)
			return nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(err)
		case errors.Is(err, ErrDuplicateUsername):
			RecordRegistration(OutcomeRejected)
			return nil, "", oops.Code("AUTH_DUPLICATE_USERNAME").Wrap(err)
		default:
			RecordRegistration(OutcomeError)
			return nil, "", oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "create user").
				Wrap(err)
		}
	}

	claims, _, token, err := s.issuer.Issue(ctx, user, persistent, userAgent, ipAddress)
	if err != nil {
		RecordRegistration(OutcomeError)
		return nil, "", err
	}

	RecordRegistration(OutcomeSuccess)
	return claims, token, nil
}

// ChangePassword replaces an authenticated user's password. The caller
// supplies the subject identity; it is not re-derived here. The new password
// is always stored under the strong scheme regardless of the prior one.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword, confirmNewPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return oops.Code("AUTH_INVALID_INPUT").Errorf("current and new password are required")
	}
	if newPassword != confirmNewPassword {
		return oops.Code("AUTH_PASSWORD_MISMATCH").Errorf("new passwords do not match")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_WEAK").
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return oops.Code("AUTH_INCORRECT_CURRENT_PASSWORD").Errorf("current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}
	return nil
}

// Logout revokes the session behind the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.issuer.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return s.issuer.Revoke(ctx, session.ID)
}

// ValidateSession validates a session token and returns the session if valid.
// Also updates the LastSeenAt timestamp, the consumer-side sliding renewal.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.issuer.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	// Best effort, validation succeeds regardless
	_ = s.issuer.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return session, nil
}
