// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

// Package auth is the credential authentication and session-issuance core
// for the Gundem portal.
//
// # Domain Types
//
// Domain types (User, Session, SessionClaims) should be created using their
// respective constructors:
//   - NewUser - creates a User with a fresh ULID and creation timestamp
//   - NewSession - creates a Session with validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - local login, registration, password change, logout
//   - ExternalIdentityService - find-or-provision for provider-verified emails
//   - Issuer - claims construction and session revocation
//
// Services are created with New*Service constructors that validate dependencies.
//
// # Stored Hash Formats
//
// Two credential schemes coexist during the hash migration. The strong scheme
// serializes as "PBKDF2|<iterations>|<salt b64>|<key b64>"; anything else is
// treated as a legacy raw base64 SHA-256 digest. Every successful login through
// a legacy hash upgrades the stored credential to the strong scheme.
package auth
