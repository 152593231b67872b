// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionClaims is the fixed-shape, immutable bundle of identity facts
// asserted for the duration of an authenticated interaction. The session
// transport maps it into whatever token/cookie encoding it uses; this core
// does not define that wire format.
type SessionClaims struct {
	SubjectID  ulid.ULID
	Username   string
	Email      string
	Role       Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Persistent bool
}

// Issuer builds session claims from user records and defines logout
// semantics. Expiry is always issued-at + TTL at issuance; sliding renewal is
// the session consumer's concern (see Service.ValidateSession).
type Issuer struct {
	sessions SessionRepository
	ttl      time.Duration
}

// NewIssuer creates an Issuer. A non-positive ttl falls back to SessionTTL.
func NewIssuer(sessions SessionRepository, ttl time.Duration) (*Issuer, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &Issuer{sessions: sessions, ttl: ttl}, nil
}

// Issue constructs claims for the user, generates a session token, and
// persists the backing session. The persistent flag governs only whether the
// transport keeps the session across client restarts; it never changes the
// expiry.
func (i *Issuer) Issue(ctx context.Context, user *User, persistent bool, userAgent, ipAddress string) (*SessionClaims, *Session, string, error) {
	if user == nil {
		return nil, nil, "", oops.Code("SESSION_ISSUE_FAILED").Errorf("user cannot be nil")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(i.ttl)

	session, err := NewSession(user.ID, tokenHash, userAgent, ipAddress, persistent, expiresAt)
	if err != nil {
		return nil, nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := i.sessions.Create(ctx, session); err != nil {
		return nil, nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	claims := &SessionClaims{
		SubjectID:  user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Persistent: persistent,
	}
	return claims, session, token, nil
}

// Revoke invalidates a session: no claims backed by it are considered valid
// for this interaction going forward.
func (i *Issuer) Revoke(ctx context.Context, sessionID ulid.ULID) error {
	err := i.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}
