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
	"github.com/danhque/veranda/pkg/uuid"
)

// # External Provider Contracts

// ProviderProfile is the identity a provider asserts after a successful
// OAuth exchange.
type ProviderProfile struct {
	Key   string // Provider-scoped stable subject identifier
	Email string
	Name  string
}

// ProviderClient is the contract an OAuth provider integration fulfills.
type ProviderClient interface {
	// AuthorizeURL builds the provider's authorization redirect URL.
	AuthorizeURL(state string, redirectURI string) string

	// Exchange trades an authorization code for the asserted profile.
	Exchange(context context.Context, code string, redirectURI string) (*ProviderProfile, error)
}

// PendingExternal is a provider identity waiting for the user to finish
// enrollment. It lives server-side so the binding key can never be forged
// by the confirmation request.
type PendingExternal struct {
	Provider string          `json:"provider"`
	Profile  ProviderProfile `json:"profile"`
}

// # External Sign-In Flow

// ExternalResult is the terminal state of an external-login callback.
// When NeedsConfirmation is set, no account exists yet and the caller must
// run ConfirmExternal with the returned pending token.
type ExternalResult struct {
	SignIn            *SignInResult
	NeedsConfirmation bool
	PendingToken      string
	Provider          string
	Profile           *ProviderProfile
}

// providerFor resolves a provider client, honoring the site's allow-list.
func (service *Service) providerFor(site *tenant.Site, provider string) (ProviderClient, error) {
	if !site.ProviderAllowed(provider) {
		return nil, apperr.Forbidden("This sign-in provider is not enabled on this site")
	}

	client, ok := service.providers[provider]
	if !ok {
		return nil, apperr.NotFound("Sign-in provider")
	}

	return client, nil
}

/*
BeginExternal starts the OAuth dance for a provider.

Parameters:
  - site: *tenant.Site
  - provider: string
  - state: string (CSRF token round-tripped through the provider)
  - redirectURI: string

Returns:
  - string: Authorization URL to redirect the user to
  - error: Forbidden or NotFound for unusable providers
*/
func (service *Service) BeginExternal(site *tenant.Site, provider string, state string, redirectURI string) (string, error) {
	client, err := service.providerFor(site, provider)
	if err != nil {
		return "", err
	}

	return client.AuthorizeURL(state, redirectURI), nil
}

/*
CompleteExternal handles the provider callback.

Description: Exchanges the code for a profile and looks for an existing
binding on the site. A bound account runs the same policy gates and
two-factor branch as password sign-in; an unbound identity comes back as
NeedsConfirmation so the user can finish enrollment.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - provider: string
  - code: string
  - redirectURI: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *ExternalResult: Sign-in outcome or confirmation request
  - error: Provider or storage failures
*/
func (service *Service) CompleteExternal(context context.Context, site *tenant.Site, provider string, code string, redirectURI string, userAgent, ipAddress string) (*ExternalResult, error) {
	client, err := service.providerFor(site, provider)
	if err != nil {
		return nil, err
	}

	profile, err := client.Exchange(context, code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("account_service_external_exchange_failed: %w", err)
	}

	binding, err := service.externalLoginRepository.FindByProviderKey(context, site.ID, provider, profile.Key)
	if err != nil {
		// No binding yet: park the profile server-side and hand back a
		// single-use token for the enrollment confirmation step.
		pendingToken, err := sec.GenerateSecureToken(ExternalPendingLength)
		if err != nil {
			return nil, fmt.Errorf("account_service_external_token_failed: %w", err)
		}

		pending := &PendingExternal{Provider: provider, Profile: *profile}
		if err := service.externalProfileRepository.Set(context, pendingToken, pending, ExternalPendingTTL); err != nil {
			return nil, fmt.Errorf("account_service_external_store_failed: %w", err)
		}

		return &ExternalResult{
			NeedsConfirmation: true,
			PendingToken:      pendingToken,
			Provider:          provider,
			Profile:           profile,
		}, nil
	}

	user, err := service.userRepository.FindByID(context, site.ID, binding.UserID)
	if err != nil {
		return nil, fmt.Errorf("account_service_external_user_failed: %w", err)
	}

	// External identity does not bypass the account-state gates.
	if user.IsLockedOut(time.Now()) {
		return &ExternalResult{SignIn: refused(OutcomeLockedOut)}, nil
	}
	if result := service.policyGates(context, site, user); result != nil {
		return &ExternalResult{SignIn: result}, nil
	}

	// Nor does it bypass the second factor.
	if user.TwoFactorEnabled {
		result, err := service.beginTwoFactor(context, user)
		if err != nil {
			return nil, err
		}
		return &ExternalResult{SignIn: result}, nil
	}

	result, err := service.completeSignIn(context, site, user, false, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	return &ExternalResult{SignIn: result}, nil
}

// ConfirmExternalInput finishes enrollment for an unbound external identity.
type ConfirmExternalInput struct {
	PendingToken      string
	DisplayName       string
	AgreementAccepted bool
	UserAgent         string
	IPAddress         string
}

/*
ConfirmExternal creates a local account for a pending provider identity and
binds it.

Description: The identity comes from the server-side pending record, never
from the request. The username is derived from the profile email; when that
name is already held by another account the full email address is used
instead. The new account then passes through the same three-way registration
terminal as form registration. No password is set; the binding is the
credential.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - input: ConfirmExternalInput

Returns:
  - *RegistrationResult: Terminal status plus created entity
  - error: Policy refusals (apperr) or storage failures
*/
func (service *Service) ConfirmExternal(context context.Context, site *tenant.Site, input ConfirmExternalInput) (*RegistrationResult, error) {
	if !site.AllowNewRegistration {
		return nil, apperr.Forbidden("Registration is closed on this site")
	}
	if site.HasAgreement() && !input.AgreementAccepted {
		return nil, apperr.Unprocessable("You must accept the registration agreement")
	}

	pending, err := service.externalProfileRepository.Get(context, input.PendingToken)
	if err != nil {
		return nil, apperr.Unauthorized("Sign-in request is invalid or expired")
	}
	if !site.ProviderAllowed(pending.Provider) {
		return nil, apperr.Forbidden("This sign-in provider is not enabled on this site")
	}

	email := pending.Profile.Email

	_, err = service.userRepository.FindByEmail(context, site.ID, email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Derived name first; fall back to the full email on collision.
	username := DeriveUsername(email)
	if _, err := service.userRepository.FindByUsername(context, site.ID, username); err == nil {
		username = email
		if _, err := service.userRepository.FindByUsername(context, site.ID, username); err == nil {
			return nil, apperr.Conflict("Username is already taken")
		}
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = pending.Profile.Name
	}

	user := &User{
		ID:             uuid.New(),
		SiteID:         site.ID,
		Username:       username,
		Email:          email,
		DisplayName:    displayName,
		Role:           sec.RoleMember,
		EmailConfirmed: false,
		Approved:       !site.RequireApprovalBeforeLogin,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("account_service_external_register_failed: %w", err)
	}

	binding := &ExternalLogin{
		SiteID:      site.ID,
		Provider:    pending.Provider,
		ProviderKey: pending.Profile.Key,
		UserID:      user.ID,
		Email:       email,
	}

	if err := service.externalLoginRepository.Create(context, binding); err != nil {
		return nil, fmt.Errorf("account_service_external_bind_failed: %w", err)
	}

	// Single use.
	_ = service.externalProfileRepository.Delete(context, input.PendingToken)

	return service.registrationTerminal(context, site, user, input.UserAgent, input.IPAddress)
}

/*
BindExternal attaches a pending provider identity to an existing signed-in
account.

Description: The identity comes from the server-side pending record created
by a provider callback, so a caller can only bind identities they actually
authenticated with.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - userID: string
  - pendingToken: string

Returns:
  - error: Conflict when the identity is already bound, storage failures
*/
func (service *Service) BindExternal(context context.Context, site *tenant.Site, userID string, pendingToken string) error {
	pending, err := service.externalProfileRepository.Get(context, pendingToken)
	if err != nil {
		return apperr.Unauthorized("Sign-in request is invalid or expired")
	}

	if _, err := service.externalLoginRepository.FindByProviderKey(context, site.ID, pending.Provider, pending.Profile.Key); err == nil {
		return apperr.Conflict("This external identity is already linked to an account")
	}

	user, err := service.userRepository.FindByID(context, site.ID, userID)
	if err != nil {
		return err
	}

	binding := &ExternalLogin{
		SiteID:      site.ID,
		Provider:    pending.Provider,
		ProviderKey: pending.Profile.Key,
		UserID:      user.ID,
		Email:       pending.Profile.Email,
	}

	if err := service.externalLoginRepository.Create(context, binding); err != nil {
		return fmt.Errorf("account_service_external_bind_failed: %w", err)
	}

	// Single use.
	_ = service.externalProfileRepository.Delete(context, pendingToken)

	return nil
}
