// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"time"

	"github.com/danhque/veranda/pkg/pagination"
)

// # User Data Access

// UserRepository defines the data access contract for site user accounts.
// Lookups are always scoped to a site; IDs alone are not globally meaningful.
type UserRepository interface {

	/*
		FindByID returns the site's account with the given ID.

		Parameters:
		  - context: context.Context
		  - siteID: string
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, siteID string, id string) (*User, error)

	/*
		FindByEmail returns the site's account with the given email.

		Parameters:
		  - context: context.Context
		  - siteID: string
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, siteID string, email string) (*User, error)

	/*
		FindByUsername returns the site's account with the given username.

		Parameters:
		  - context: context.Context
		  - siteID: string
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, siteID string, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists changes to mutable profile and policy fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - passwordHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID string, passwordHash string) error

	/*
		MarkEmailConfirmed flips the email confirmation flag.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkEmailConfirmed(context context.Context, userID string) error

	/*
		SetApproved flips the administrative approval flag.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - approved: bool

		Returns:
		  - error: Persistence failures
	*/
	SetApproved(context context.Context, userID string, approved bool) error

	/*
		RecordFailedAttempt writes the lockout counters after a failed
		password or code check.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - failedAttempts: int
		  - lockoutUntil: *time.Time (nil clears any lockout)

		Returns:
		  - error: Persistence failures
	*/
	RecordFailedAttempt(context context.Context, userID string, failedAttempts int, lockoutUntil *time.Time) error

	/*
		RecordLoginSuccess clears the lockout counters and stamps the
		last-login time.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	RecordLoginSuccess(context context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh sessions.
type SessionRepository interface {

	/*
		Create persists a newly established session.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the active session matching a hashed
		refresh token.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound for revoked/expired/absent sessions
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		Revoke marks a single session as revoked.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, sessionID string) error

	/*
		RevokeAll revokes every active session of a user. Used after a
		password reset.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeAll(context context.Context, userID string) error

	/*
		DeleteExpired removes sessions past their expiry. Maintenance
		operation, safe to run repeatedly.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Number of rows removed
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context) (int64, error)
}

// # External Login Data Access

// ExternalLoginRepository stores provider identity bindings.
type ExternalLoginRepository interface {

	/*
		FindByProviderKey returns the binding for a provider identity on
		a site.

		Parameters:
		  - context: context.Context
		  - siteID: string
		  - provider: string
		  - providerKey: string

		Returns:
		  - *ExternalLogin: Hydrated binding
		  - error: apperr.NotFound when no binding exists
	*/
	FindByProviderKey(context context.Context, siteID string, provider string, providerKey string) (*ExternalLogin, error)

	/*
		Create persists a new provider binding.

		Parameters:
		  - context: context.Context
		  - login: *ExternalLogin

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, login *ExternalLogin) error

	/*
		ListForUser returns every binding attached to a user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []ExternalLogin: Bindings, possibly empty
		  - error: Database retrieval failures
	*/
	ListForUser(context context.Context, userID string) ([]ExternalLogin, error)
}

// # Login IP Data Access

// LoginIPRepository maintains the per-user sign-in address audit trail.
type LoginIPRepository interface {

	/*
		Record upserts a (user, address) row, bumping the counter and
		last-seen stamp on repeat visits.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - ipAddress: string

		Returns:
		  - error: Persistence failures
	*/
	Record(context context.Context, userID string, ipAddress string) error

	/*
		ListForUser returns a page of the user's sign-in addresses,
		most recent first.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - params: pagination.Params

		Returns:
		  - []LoginIP: Page of rows
		  - int64: Total row count for the user
		  - error: Database retrieval failures
	*/
	ListForUser(context context.Context, userID string, params pagination.Params) ([]LoginIP, int64, error)
}

// # Volatile Token Stores

// ConfirmTokenRepository stores single-use email confirmation tokens.
type ConfirmTokenRepository interface {

	// Set stores a confirmation token mapped to a userID with a TTL.
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	// Get returns the userID for a token, or apperr.NotFound when absent.
	Get(context context.Context, token string) (string, error)

	// Delete removes a token after use.
	Delete(context context.Context, token string) error
}

// ResetTokenRepository stores single-use password reset tokens.
type ResetTokenRepository interface {

	// Set stores a reset token mapped to a userID with a TTL.
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	// Get returns the userID for a token, or apperr.NotFound when absent.
	Get(context context.Context, token string) (string, error)

	// Delete removes a token after use.
	Delete(context context.Context, token string) error
}

// ExternalProfileRepository stores provider profiles awaiting registration
// confirmation, keyed by a single-use token.
type ExternalProfileRepository interface {

	// Set stores a pending external profile under a token with a TTL.
	Set(context context.Context, token string, pending *PendingExternal, ttl time.Duration) error

	// Get returns the pending profile for a token, or apperr.NotFound
	// when absent or expired.
	Get(context context.Context, token string) (*PendingExternal, error)

	// Delete consumes a pending profile token.
	Delete(context context.Context, token string) error
}

// TwoFactorRepository stores the volatile state of the two-factor flow:
// the pending sign-in token minted after the password gate, and the
// numeric security code dispatched to the user.
type TwoFactorRepository interface {

	// SetPending stores a pending sign-in token mapped to a userID.
	SetPending(context context.Context, token string, userID string, ttl time.Duration) error

	// GetPending returns the userID for a pending token, or
	// apperr.NotFound when absent or expired.
	GetPending(context context.Context, token string) (string, error)

	// DeletePending consumes a pending token.
	DeletePending(context context.Context, token string) error

	// SetCode stores the dispatched security code for (user, provider).
	SetCode(context context.Context, userID string, provider string, code string, ttl time.Duration) error

	// GetCode returns the stored code, or apperr.NotFound when absent.
	GetCode(context context.Context, userID string, provider string) (string, error)

	// DeleteCode consumes the security code.
	DeleteCode(context context.Context, userID string, provider string) error

	// AddTrust records a trusted-client grant (hashed token) for a user,
	// letting that client skip the two-factor challenge until the grant
	// expires.
	AddTrust(context context.Context, userID string, tokenHash string, ttl time.Duration) error

	// IsTrusted reports whether the hashed token is a live trusted-client
	// grant for the user.
	IsTrusted(context context.Context, userID string, tokenHash string) (bool, error)
}
