// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// usernameSuffixRetries bounds the random-suffix attempts when the email's
// local part is already taken as a username. Exhausting them fails the
// resolution explicitly instead of looping on a crowded namespace.
const usernameSuffixRetries = 5

// errUsernameTaken drives the retry loop in pickUsername.
var errUsernameTaken = errors.New("username taken")

// ExternalIdentityService binds provider-verified email addresses to local
// user records, provisioning one on first sight. The provider handshake
// itself happens upstream; this service trusts the email as already verified.
type ExternalIdentityService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewExternalIdentityService creates a new ExternalIdentityService.
func NewExternalIdentityService(users UserRepository, hasher PasswordHasher) (*ExternalIdentityService, error) {
	return NewExternalIdentityServiceWithLogger(users, hasher, slog.Default())
}

// NewExternalIdentityServiceWithLogger creates a new ExternalIdentityService
// with an explicit logger.
func NewExternalIdentityServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*ExternalIdentityService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &ExternalIdentityService{users: users, hasher: hasher, logger: logger}, nil
}

// Resolve finds or provisions the local user record for a provider-verified
// email. Resolution is idempotent: an existing record is returned unmodified,
// and a lost insert race re-reads the winner's record.
//
// Provisioned records carry a freshly generated, never-transmitted random
// password so they satisfy the same shape as locally registered users.
func (s *ExternalIdentityService) Resolve(ctx context.Context, verifiedEmail string) (*User, error) {
	if verifiedEmail == "" {
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("AUTH_INVALID_INPUT").Errorf("email cannot be empty")
	}

	user, err := s.users.GetByEmail(ctx, verifiedEmail)
	if err == nil {
		RecordExternalProvision("existing")
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("EXTERNAL_RESOLVE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	username, err := s.pickUsername(ctx, verifiedEmail)
	if err != nil {
		RecordExternalProvision(OutcomeError)
		return nil, err
	}

	password, err := randomPassword()
	if err != nil {
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("EXTERNAL_PROVISION_FAILED").
			With("operation", "generate password").
			Wrap(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("EXTERNAL_PROVISION_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err = NewUser(username, verifiedEmail, hash, RoleUser)
	if err != nil {
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("EXTERNAL_PROVISION_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost a race with a concurrent resolution of the same email;
			// the winner's record is the right answer.
			existing, getErr := s.users.GetByEmail(ctx, verifiedEmail)
			if getErr == nil {
				RecordExternalProvision("existing")
				return existing, nil
			}
			RecordExternalProvision(OutcomeError)
			return nil, oops.Code("EXTERNAL_RESOLVE_FAILED").
				With("operation", "re-read after duplicate email").
				Wrap(getErr)
		}
		RecordExternalProvision(OutcomeError)
		return nil, oops.Code("EXTERNAL_PROVISION_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("provisioned user from external identity",
		"user_id", user.ID.String(),
		"username", user.Username)
	RecordExternalProvision("provisioned")
	return user, nil
}

// pickUsername derives a username from the email's local part, appending a
// random 4-digit suffix while the candidate is taken. Retries are bounded;
// exhaustion is an explicit failure.
func (s *ExternalIdentityService) pickUsername(ctx context.Context, email string) (string, error) {
	base, _, found := strings.Cut(email, "@")
	if !found || base == "" {
		return "", oops.Code("EXTERNAL_INVALID_EMAIL").
			With("email", email).
			Errorf("email has no local part")
	}

	taken, err := s.usernameTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	var chosen string
	backoff := retry.WithMaxRetries(usernameSuffixRetries, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		suffix, err := randomSuffix()
		if err != nil {
			return oops.Code("EXTERNAL_PROVISION_FAILED").
				With("operation", "generate username suffix").
				Wrap(err)
		}
		candidate := fmt.Sprintf("%s%04d", base, suffix)

		taken, err := s.usernameTaken(ctx, candidate)
		if err != nil {
			return err
		}
		if taken {
			return retry.RetryableError(errUsernameTaken)
		}
		chosen = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			return "", oops.Code("EXTERNAL_USERNAME_EXHAUSTED").
				With("base", base).
				With("attempts", usernameSuffixRetries).
				Errorf("could not find a free username for %q", base)
		}
		return "", err
	}
	return chosen, nil
}

// usernameTaken reports whether a username exists in the repository.
func (s *ExternalIdentityService) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, oops.Code("EXTERNAL_RESOLVE_FAILED").
		With("operation", "get user by username").
		Wrap(err)
}

// randomSuffix returns a uniform random number in [1000, 9999].
func randomSuffix() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, err
	}
	return n.Int64() + 1000, nil
}

// randomPassword returns a 64-char hex password that is never transmitted
// or returned; it only exists so provisioned records satisfy the local
// credential shape.
func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
