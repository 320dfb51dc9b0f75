// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/tenant"
)

// # Two-Factor Flow

// TwoFactorProviders returns the delivery channels available to a user.
// Email requires a confirmed address; Phone requires a number on file.
func TwoFactorProviders(user *User) []string {
	var providers []string
	if user.EmailConfirmed {
		providers = append(providers, TwoFactorProviderEmail)
	}
	if user.PhoneNumber != "" {
		providers = append(providers, TwoFactorProviderPhone)
	}
	return providers
}

// providerAvailable reports whether the provider is usable for the user.
func providerAvailable(user *User, provider string) bool {
	for _, available := range TwoFactorProviders(user) {
		if available == provider {
			return true
		}
	}
	return false
}

/*
SendCode generates and dispatches a security code for a pending sign-in.

Description: The pending token minted by SignIn identifies the user; the
code is bound to (user, provider) in Redis and delivered through the
notifier. The pending token survives so the user can retry delivery.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - pendingToken: string
  - provider: string ("Email" or "Phone")

Returns:
  - error: Unauthorized for bad tokens, Unprocessable for bad providers,
    storage failures otherwise
*/
func (service *Service) SendCode(context context.Context, site *tenant.Site, pendingToken string, provider string) error {
	userID, err := service.twoFactorRepository.GetPending(context, pendingToken)
	if err != nil {
		return apperr.Unauthorized("Sign-in request is invalid or expired")
	}

	user, err := service.userRepository.FindByID(context, site.ID, userID)
	if err != nil {
		return apperr.Unauthorized("Sign-in request is invalid or expired")
	}

	if !providerAvailable(user, provider) {
		return apperr.Unprocessable("Security code provider is not available")
	}

	code, err := sec.GenerateNumericCode(TwoFactorCodeDigits)
	if err != nil {
		return fmt.Errorf("account_service_code_generation_failed: %w", err)
	}

	if err := service.twoFactorRepository.SetCode(context, user.ID, provider, code, TwoFactorCodeTTL); err != nil {
		return fmt.Errorf("account_service_code_store_failed: %w", err)
	}

	service.notifier.SecurityCodeIssued(site, user, provider, code)
	return nil
}

// VerifyCodeInput carries a two-factor verification attempt.
type VerifyCodeInput struct {
	PendingToken   string
	Provider       string
	Code           string
	Remember       bool // Request a persistent session
	RememberClient bool // Skip the challenge on this browser next time
	UserAgent      string
	IPAddress      string
}

/*
VerifyCode checks a security code and, on success, completes the sign-in.

Description: A correct code consumes both the code and the pending token and
establishes a session. Wrong codes count against the site's lockout ceiling
exactly like wrong passwords.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - input: VerifyCodeInput

Returns:
  - *SignInResult: Success with session, or a refusal outcome
  - error: Infrastructure failures only
*/
func (service *Service) VerifyCode(context context.Context, site *tenant.Site, input VerifyCodeInput) (*SignInResult, error) {
	userID, err := service.twoFactorRepository.GetPending(context, input.PendingToken)
	if err != nil {
		return refused(OutcomeFailed), nil
	}

	user, err := service.userRepository.FindByID(context, site.ID, userID)
	if err != nil {
		return refused(OutcomeFailed), nil
	}

	// Lockout can trip between code dispatch and verification.
	if user.IsLockedOut(time.Now()) {
		return refused(OutcomeLockedOut), nil
	}

	storedCode, err := service.twoFactorRepository.GetCode(context, user.ID, input.Provider)
	if err != nil {
		return refused(OutcomeFailed), nil
	}

	// Constant-time comparison; codes are short and brute-forceable, so the
	// failed attempt also counts against the lockout ceiling.
	if subtle.ConstantTimeCompare([]byte(storedCode), []byte(input.Code)) != 1 {
		return service.recordFailure(context, site, user)
	}

	// Single use: consume both the code and the pending token.
	_ = service.twoFactorRepository.DeleteCode(context, user.ID, input.Provider)
	_ = service.twoFactorRepository.DeletePending(context, input.PendingToken)

	result, err := service.completeSignIn(context, site, user, input.Remember, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	// Mint a trust grant so this browser skips the challenge next time.
	// Failure to mint never fails the sign-in that was just verified.
	if input.RememberClient {
		if trustToken, tokenErr := sec.GenerateSecureToken(TrustedClientLength); tokenErr == nil {
			if trustErr := service.twoFactorRepository.AddTrust(context, user.ID, sec.HashToken(trustToken), TrustedClientTTL); trustErr == nil {
				result.TrustedClientToken = trustToken
			}
		}
	}

	return result, nil
}
