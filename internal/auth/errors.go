// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import "errors"

// Sentinel errors for the repository boundary. Services wrap these with
// oops codes; callers branch with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when an insert would violate the
	// unique username constraint.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrDuplicateEmail is returned when an insert would violate the
	// unique email constraint.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrConcurrencyConflict is returned when an update lost a race with a
	// concurrent writer. The operation may be retried after a fresh read.
	ErrConcurrencyConflict = errors.New("record changed since load")
)
