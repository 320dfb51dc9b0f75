// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package account implements the tenant-scoped identity and session system.

It covers the full account lifecycle for a site: password sign-in with policy
gates, two-factor code verification, registration with its three possible
terminals, external login binding, and password recovery.

# Architecture

  - Service: Orchestrates the coordinators (sign-in, two-factor, registration,
    external, recovery) against a per-request [tenant.Site].
  - Repository: Abstracted interfaces for Postgres (users, sessions, bindings,
    login IPs) and Redis (confirmation, reset, and two-factor tokens).
  - Security: bcrypt password hashes and RSA-signed JWTs via platform/sec.

Every operation takes the tenant site explicitly; nothing in this package
reads ambient tenant state.
*/
package account

import (
	"strings"
	"time"

	"github.com/danhque/veranda/internal/platform/sec"
)

// # Sign-In Outcomes

// Outcome is the closed set of results a sign-in style operation can produce.
type Outcome string

const (
	// OutcomeSuccess means a session was established.
	OutcomeSuccess Outcome = "success"

	// OutcomeRequiresTwoFactor means the password gate passed and a second
	// factor is pending. No session exists yet.
	OutcomeRequiresTwoFactor Outcome = "requires_two_factor"

	// OutcomeLockedOut means the account is (or just became) locked.
	OutcomeLockedOut Outcome = "locked_out"

	// OutcomeNotAllowed means a site policy gate refused the attempt
	// (unconfirmed email, pending approval, direct auth disabled).
	OutcomeNotAllowed Outcome = "not_allowed"

	// OutcomeFailed means the credentials did not match.
	OutcomeFailed Outcome = "failed"
)

// # Domain Entities

// User represents a registered member of a site.
type User struct {
	ID           string       `json:"id"`
	SiteID       string       `json:"site_id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	PhoneNumber  string       `json:"phone_number,omitempty"`
	Role         sec.UserRole `json:"role"`

	// Policy state consulted by the sign-in gates.
	EmailConfirmed   bool `json:"email_confirmed"`
	Approved         bool `json:"approved"`
	TwoFactorEnabled bool `json:"two_factor_enabled"`

	// Lockout bookkeeping.
	FailedAttempts int        `json:"-"`
	LockoutUntil   *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLockedOut reports whether the account is locked at the given instant.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}

// Session represents an active refresh-token session.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	TokenHash    string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	IsPersistent bool      `json:"is_persistent"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsRevoked    bool      `json:"is_revoked"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExternalLogin binds a site user to an identity at an external provider.
type ExternalLogin struct {
	SiteID      string    `json:"site_id"`
	Provider    string    `json:"provider"`
	ProviderKey string    `json:"provider_key"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginIP is one row of the per-user sign-in address audit trail.
type LoginIP struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	IPAddress  string    `json:"ip_address"`
	LoginCount int       `json:"login_count"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// # Username Derivation

// usernameStripper removes the characters that make an email address
// unusable as a username.
var usernameStripper = strings.NewReplacer("@", "", ".", "")

// DeriveUsername builds a default username from an email address by
// stripping '@' and '.'. The result is idempotent: deriving from an
// already-derived value returns it unchanged.
func DeriveUsername(email string) string {
	return usernameStripper.Replace(email)
}

// # Field Identifiers

// Global field names for validation and identity mapping in the account domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldLogin           = "login"
	FieldToken           = "token"
	FieldCode            = "code"
	FieldProvider        = "provider"
	FieldAgreement       = "agreement_accepted"
	FieldCaptcha         = "captcha_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
	FieldUserID          = "user_id"
)
