// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import "time"

// # Session Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// PersistentRefreshTTL is the refresh-token lifetime for "remember me"
	// sessions on sites that allow persistent login.
	PersistentRefreshTTL = 30 * 24 * time.Hour

	// SessionRefreshTTL is the refresh-token lifetime for ordinary sessions.
	SessionRefreshTTL = 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32
)

// # Volatile Token Constraints

const (
	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// ConfirmTokenTTL is the duration an email confirmation token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	ConfirmTokenTTL = 24 * time.Hour

	// ConfirmTokenLength is the byte length of the random confirmation token.
	ConfirmTokenLength = 32
)

// # Two-Factor Constraints

const (
	// TwoFactorPendingTTL bounds the window between the password gate and
	// code verification. The pending token is single-use.
	TwoFactorPendingTTL = 5 * time.Minute

	// TwoFactorPendingLength is the byte length of the random pending token.
	TwoFactorPendingLength = 32

	// TwoFactorCodeTTL is the lifetime of a dispatched security code.
	TwoFactorCodeTTL = 5 * time.Minute

	// TwoFactorCodeDigits is the length of the numeric security code.
	TwoFactorCodeDigits = 6

	// TrustedClientTTL is how long a "remember this browser" grant skips
	// the two-factor challenge.
	TrustedClientTTL = 30 * 24 * time.Hour

	// TrustedClientLength is the byte length of the random trust token.
	TrustedClientLength = 32
)

// # External Login Constraints

const (
	// ExternalPendingTTL bounds the window between a provider callback and
	// the registration confirmation step.
	ExternalPendingTTL = 15 * time.Minute

	// ExternalPendingLength is the byte length of the random pending token.
	ExternalPendingLength = 32
)

// # Two-Factor Providers

const (
	// TwoFactorProviderEmail delivers codes to the account's confirmed email.
	TwoFactorProviderEmail = "Email"

	// TwoFactorProviderPhone delivers codes to the account's phone number.
	TwoFactorProviderPhone = "Phone"
)

// genericSignInMessage is the single client-visible message for every
// sign-in refusal. Using one string for unknown users, wrong passwords,
// and policy gates prevents account enumeration.
const genericSignInMessage = "Invalid login attempt."
