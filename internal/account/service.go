// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/tenant"
	"github.com/danhque/veranda/pkg/pagination"
	"github.com/danhque/veranda/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - siteID: The ID of the site the session belongs to.
	//   - username: The username of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, siteID, username, role string, timeToLive time.Duration) (string, error)
}

// CaptchaVerifier checks a client-supplied captcha response.
type CaptchaVerifier interface {
	// Verify reports whether the captcha response is valid for the remote IP.
	Verify(context context.Context, response string, remoteIP string) (bool, error)
}

// Notifier dispatches account-related messages. Implementations enqueue onto
// a supervised background dispatcher and return immediately; delivery
// failures are logged by the dispatcher rather than surfaced to callers.
type Notifier interface {
	// ConfirmationRequested sends the email confirmation link.
	ConfirmationRequested(site *tenant.Site, user *User, token string)

	// PasswordResetRequested sends the password reset link.
	PasswordResetRequested(site *tenant.Site, user *User, token string)

	// SecurityCodeIssued delivers a two-factor code via the chosen provider.
	SecurityCodeIssued(site *tenant.Site, user *User, provider string, code string)

	// ApprovalRequested notifies the site's approvers about a new account.
	ApprovalRequested(site *tenant.Site, user *User)
}

// Service implements the account use cases for a multi-tenant deployment.
// Every operation receives the caller's [tenant.Site] explicitly.
//
// # Review Process
//
// This service is critical for security. Any changes to the sign-in gates,
// lockout handling, or token issuance must be reviewed by the security team.
type Service struct {
	userRepository            UserRepository
	sessionRepository         SessionRepository
	externalLoginRepository   ExternalLoginRepository
	externalProfileRepository ExternalProfileRepository
	loginIPRepository         LoginIPRepository
	confirmTokenRepository    ConfirmTokenRepository
	resetTokenRepository      ResetTokenRepository
	twoFactorRepository       TwoFactorRepository
	tokenProvider             TokenProvider
	captcha                   CaptchaVerifier
	notifier                  Notifier
	providers                 map[string]ProviderClient
}

// NewService constructs a new account [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	externalRepo ExternalLoginRepository,
	externalProfileRepo ExternalProfileRepository,
	loginIPRepo LoginIPRepository,
	confirmRepo ConfirmTokenRepository,
	resetRepo ResetTokenRepository,
	twoFactorRepo TwoFactorRepository,
	tokenProv TokenProvider,
	captcha CaptchaVerifier,
	notifier Notifier,
	providers map[string]ProviderClient,
) *Service {
	return &Service{
		userRepository:            userRepo,
		sessionRepository:         sessionRepo,
		externalLoginRepository:   externalRepo,
		externalProfileRepository: externalProfileRepo,
		loginIPRepository:         loginIPRepo,
		confirmTokenRepository:    confirmRepo,
		resetTokenRepository:      resetRepo,
		twoFactorRepository:       twoFactorRepo,
		tokenProvider:             tokenProv,
		captcha:                   captcha,
		notifier:                  notifier,
		providers:                 providers,
	}
}

// # Sign-In Flow

// SignInInput defines credentials for an authentication attempt.
type SignInInput struct {
	Login           string // Username or email, per the site's login policy
	Password        string
	CaptchaResponse string
	Remember        bool // Request a persistent session
	UserAgent       string
	IPAddress       string

	// TrustedClientToken is the "remember this browser" token from a prior
	// two-factor verification, if the client presents one.
	TrustedClientToken string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	IsPersistent          bool
	User                  *User
}

// SignInResult is the terminal state of a sign-in attempt. Exactly one of
// Session or TwoFactorToken is populated on the non-failure outcomes.
type SignInResult struct {
	Outcome            Outcome
	Message            string
	Session            *LoginSession
	TwoFactorToken     string
	TwoFactorProviders []string

	// TrustedClientToken is set when the user asked to remember this
	// browser during two-factor verification.
	TrustedClientToken string
}

// refused builds a refusal result carrying the uniform client message.
// Every refusal path shares one message so responses never reveal whether
// an account exists, is locked, or failed a policy gate.
func refused(outcome Outcome) *SignInResult {
	return &SignInResult{Outcome: outcome, Message: genericSignInMessage}
}

/*
SignIn validates credentials against the site's policy gates and either
establishes a session, starts the two-factor flow, or refuses.

Description: Gate order is fixed: direct-auth policy, captcha, account
lookup, lockout, email confirmation, administrative approval, then the
password itself. Policy refusals are results, not errors; only
infrastructure faults surface as errors.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - input: SignInInput

Returns:
  - *SignInResult: Terminal outcome with optional session or pending token
  - error: Infrastructure failures only
*/
func (service *Service) SignIn(context context.Context, site *tenant.Site, input SignInInput) (*SignInResult, error) {

	// Sites may turn local password auth off entirely (external-only sites).
	if site.DisableDbAuth {
		return refused(OutcomeNotAllowed), nil
	}

	// Captcha gate runs before any account lookup.
	if site.RequireCaptchaOnLogin {
		passed, err := service.captcha.Verify(context, input.CaptchaResponse, input.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("account_service_captcha_failed: %w", err)
		}
		if !passed {
			return &SignInResult{Outcome: OutcomeFailed, Message: "Captcha verification failed."}, nil
		}
	}

	// Look up strictly by the site's configured identifier kind.
	var user *User
	var err error
	if site.UseEmailForLogin {
		user, err = service.userRepository.FindByEmail(context, site.ID, input.Login)
	} else {
		user, err = service.userRepository.FindByUsername(context, site.ID, input.Login)
	}
	if err != nil {
		return refused(OutcomeFailed), nil
	}

	// Active lockout refuses before the password is even checked.
	if user.IsLockedOut(time.Now()) {
		return refused(OutcomeLockedOut), nil
	}

	// Site policy gates.
	if result := service.policyGates(context, site, user); result != nil {
		return result, nil
	}

	// Constant-time bcrypt comparison.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return service.recordFailure(context, site, user)
	}

	// Two-factor accounts get a pending token instead of a session, unless
	// this browser holds a live trust grant from an earlier verification.
	if user.TwoFactorEnabled {
		if input.TrustedClientToken != "" {
			trusted, err := service.twoFactorRepository.IsTrusted(context, user.ID, sec.HashToken(input.TrustedClientToken))
			if err != nil {
				return nil, fmt.Errorf("account_service_trust_check_failed: %w", err)
			}
			if trusted {
				return service.completeSignIn(context, site, user, input.Remember, input.UserAgent, input.IPAddress)
			}
		}
		return service.beginTwoFactor(context, user)
	}

	return service.completeSignIn(context, site, user, input.Remember, input.UserAgent, input.IPAddress)
}

// policyGates evaluates the site's account-state gates. A nil return means
// the account may proceed; a non-nil return is the refusal to send back.
func (service *Service) policyGates(context context.Context, site *tenant.Site, user *User) *SignInResult {

	// Unconfirmed email: refuse, but quietly re-send the confirmation link
	// so a user stuck without the original mail can get unstuck.
	if site.RequireConfirmedEmail && !user.EmailConfirmed {
		if token, err := sec.GenerateSecureToken(ConfirmTokenLength); err == nil {
			if err := service.confirmTokenRepository.Set(context, token, user.ID, ConfirmTokenTTL); err == nil {
				service.notifier.ConfirmationRequested(site, user, token)
			}
		}
		return refused(OutcomeNotAllowed)
	}

	// Awaiting administrative approval.
	if site.RequireApprovalBeforeLogin && !user.Approved {
		return refused(OutcomeNotAllowed)
	}

	return nil
}

// recordFailure bumps the lockout counters after a failed credential check
// and converts the attempt into a refusal result.
func (service *Service) recordFailure(context context.Context, site *tenant.Site, user *User) (*SignInResult, error) {
	attempts := user.FailedAttempts + 1

	// Trip the lockout when the site enforces a ceiling and we hit it.
	if site.MaxInvalidPasswordAttempts > 0 && attempts >= site.MaxInvalidPasswordAttempts {
		lockoutUntil := time.Now().Add(site.LockoutDuration)
		if err := service.userRepository.RecordFailedAttempt(context, user.ID, 0, &lockoutUntil); err != nil {
			return nil, fmt.Errorf("account_service_lockout_failed: %w", err)
		}
		return refused(OutcomeLockedOut), nil
	}

	if err := service.userRepository.RecordFailedAttempt(context, user.ID, attempts, user.LockoutUntil); err != nil {
		return nil, fmt.Errorf("account_service_attempt_record_failed: %w", err)
	}
	return refused(OutcomeFailed), nil
}

// beginTwoFactor mints the single-use pending token that bridges the
// password gate and code verification.
func (service *Service) beginTwoFactor(context context.Context, user *User) (*SignInResult, error) {
	token, err := sec.GenerateSecureToken(TwoFactorPendingLength)
	if err != nil {
		return nil, fmt.Errorf("account_service_twofactor_token_failed: %w", err)
	}

	if err := service.twoFactorRepository.SetPending(context, token, user.ID, TwoFactorPendingTTL); err != nil {
		return nil, fmt.Errorf("account_service_twofactor_pending_failed: %w", err)
	}

	return &SignInResult{
		Outcome:            OutcomeRequiresTwoFactor,
		TwoFactorToken:     token,
		TwoFactorProviders: TwoFactorProviders(user),
	}, nil
}

// completeSignIn finalizes a successful authentication: clears lockout
// state, records the source address, and establishes the session.
func (service *Service) completeSignIn(context context.Context, site *tenant.Site, user *User, remember bool, userAgent, ipAddress string) (*SignInResult, error) {
	if err := service.userRepository.RecordLoginSuccess(context, user.ID); err != nil {
		return nil, fmt.Errorf("account_service_login_record_failed: %w", err)
	}

	if err := service.loginIPRepository.Record(context, user.ID, ipAddress); err != nil {
		return nil, fmt.Errorf("account_service_login_ip_failed: %w", err)
	}

	session, err := service.establishSession(context, user, remember && site.AllowPersistentLogin, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	return &SignInResult{Outcome: OutcomeSuccess, Session: session}, nil
}

// establishSession issues the access/refresh token pair and persists the
// tracking session. Persistent sessions get the long refresh TTL.
func (service *Service) establishSession(context context.Context, user *User, persistent bool, userAgent, ipAddress string) (*LoginSession, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.SiteID, user.Username, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("account_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("account_service_refresh_token_failed: %w", err)
	}

	refreshTTL := SessionRefreshTTL
	if persistent {
		refreshTTL = PersistentRefreshTTL
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(refreshTTL)
	session := &Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		TokenHash:    sec.HashToken(refreshToken),
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		IsPersistent: persistent,
		ExpiresAt:    expiresAt,
		IsRevoked:    false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("account_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		IsPersistent:          persistent,
		User:                  user,
	}, nil
}

/*
SignOut permanently revokes the caller's active session.

Description: Idempotent; an unknown or already-revoked token is treated as a
successful sign-out.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Revocation failures
*/
func (service *Service) SignOut(context context.Context, refreshToken string) error {
	tokenHash := sec.HashToken(refreshToken)

	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		return nil
	}

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("account_service_signout_failed: %w", err)
	}

	return nil
}

// # Session Management

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token, revokes it to prevent reuse
(replay attack mitigation), and issues a fresh pair of rotated tokens. The
persistence flag carries over from the original session.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - error: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, site *tenant.Site, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {
	tokenHash := sec.HashToken(refreshToken)

	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("account_service_refresh_revoke_failed: %w", err)
	}

	user, err := service.userRepository.FindByID(context, site.ID, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	// Policy gates still apply: a user deactivated since the last refresh
	// must not be able to extend their session.
	if user.IsLockedOut(time.Now()) || service.policyGates(context, site, user) != nil {
		return nil, apperr.Unauthorized("Account is no longer allowed to sign in")
	}

	return service.establishSession(context, user, session.IsPersistent, userAgent, ipAddress)
}

// # Activity

/*
RecentActivity returns a page of the user's sign-in address history,
most recent first.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - userID: string
  - params: pagination.Params

Returns:
  - []LoginIP: Page of audit rows
  - int64: Total row count
  - error: Retrieval failures
*/
func (service *Service) RecentActivity(context context.Context, site *tenant.Site, userID string, params pagination.Params) ([]LoginIP, int64, error) {

	// Confirm the user belongs to the caller's site before exposing audit data.
	if _, err := service.userRepository.FindByID(context, site.ID, userID); err != nil {
		return nil, 0, err
	}

	return service.loginIPRepository.ListForUser(context, userID, params)
}
