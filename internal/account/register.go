// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/tenant"
	"github.com/danhque/veranda/pkg/uuid"
)

// # Registration Flow

// RegistrationStatus is the closed set of terminals a successful
// registration can end in. Exactly one applies per registration.
type RegistrationStatus string

const (
	// StatusSignedIn means the account was created and a session established.
	StatusSignedIn RegistrationStatus = "signed_in"

	// StatusConfirmationRequired means the account exists but the user must
	// confirm their email before signing in.
	StatusConfirmationRequired RegistrationStatus = "confirmation_required"

	// StatusPendingApproval means the account exists but an administrator
	// must approve it before sign-in.
	StatusPendingApproval RegistrationStatus = "pending_approval"
)

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username          string // Optional; derived from the email when empty
	Email             string
	Password          string
	DisplayName       string
	FirstName         string
	LastName          string
	AgreementAccepted bool
	CaptchaResponse   string
	UserAgent         string
	IPAddress         string
}

// RegistrationResult carries the terminal status and, for StatusSignedIn,
// the established session.
type RegistrationResult struct {
	Status  RegistrationStatus
	User    *User
	Session *LoginSession
}

/*
Register validates, hashes, and persists a brand new site member.

Description: Enrollment runs the site's registration gates (registration
open, captcha, agreement), derives a username when none was supplied, and
ends in exactly one of three terminals: signed in, confirmation required,
or pending approval.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - input: RegisterInput

Returns:
  - *RegistrationResult: Terminal status plus created entity
  - error: Policy refusals (apperr) or storage failures
*/
func (service *Service) Register(context context.Context, site *tenant.Site, input RegisterInput) (*RegistrationResult, error) {

	// Sites can close their doors to self-registration.
	if !site.AllowNewRegistration {
		return nil, apperr.Forbidden("Registration is closed on this site")
	}

	// Captcha gate.
	if site.RequireCaptchaOnRegistration {
		passed, err := service.captcha.Verify(context, input.CaptchaResponse, input.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("account_service_captcha_failed: %w", err)
		}
		if !passed {
			return nil, apperr.Unprocessable("Captcha verification failed")
		}
	}

	// Sites with a registration agreement require explicit acceptance.
	if site.HasAgreement() && !input.AgreementAccepted {
		return nil, apperr.Unprocessable("You must accept the registration agreement")
	}

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, site.ID, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Derive the username from the email when the form left it blank.
	username := input.Username
	if username == "" {
		username = DeriveUsername(input.Email)
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByUsername(context, site.ID, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index
	// fragmentation. Approval is seeded from the site policy so sites
	// without an approval step get immediately usable accounts.
	user := &User{
		ID:             uuid.New(),
		SiteID:         site.ID,
		Username:       username,
		Email:          input.Email,
		PasswordHash:   hashedPassword,
		DisplayName:    input.DisplayName,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Role:           sec.RoleMember,
		EmailConfirmed: false,
		Approved:       !site.RequireApprovalBeforeLogin,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("account_service_register_failed: %w", err)
	}

	return service.registrationTerminal(context, site, user, input.UserAgent, input.IPAddress)
}

// registrationTerminal routes a freshly created account into exactly one of
// the three registration terminals. Shared with external-login confirmation.
func (service *Service) registrationTerminal(context context.Context, site *tenant.Site, user *User, userAgent, ipAddress string) (*RegistrationResult, error) {

	// Confirmation wins over approval: the user cannot act on approval
	// status until they can receive email anyway.
	if site.RequireConfirmedEmail && !user.EmailConfirmed {
		token, err := sec.GenerateSecureToken(ConfirmTokenLength)
		if err != nil {
			return nil, fmt.Errorf("account_service_confirm_token_failed: %w", err)
		}
		if err := service.confirmTokenRepository.Set(context, token, user.ID, ConfirmTokenTTL); err != nil {
			return nil, fmt.Errorf("account_service_confirm_store_failed: %w", err)
		}
		service.notifier.ConfirmationRequested(site, user, token)

		return &RegistrationResult{Status: StatusConfirmationRequired, User: user}, nil
	}

	if site.RequireApprovalBeforeLogin && !user.Approved {
		service.notifier.ApprovalRequested(site, user)

		return &RegistrationResult{Status: StatusPendingApproval, User: user}, nil
	}

	session, err := service.establishSession(context, user, false, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{Status: StatusSignedIn, User: user, Session: session}, nil
}

// # Email Confirmation

/*
ConfirmEmail redeems a confirmation token for the given user.

Description: The token must both exist and belong to the user named in the
confirmation link; a token redeemed against the wrong user is rejected.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - userID: string
  - token: string

Returns:
  - bool: True when the account still awaits administrative approval
  - error: apperr.NotFound for bad tokens, storage failures otherwise
*/
func (service *Service) ConfirmEmail(context context.Context, site *tenant.Site, userID string, token string) (bool, error) {
	storedUserID, err := service.confirmTokenRepository.Get(context, token)
	if err != nil {
		return false, err
	}

	// The link binds user and token together; a mismatch means tampering.
	if storedUserID != userID {
		return false, apperr.NotFound("Confirmation token is invalid or expired")
	}

	user, err := service.userRepository.FindByID(context, site.ID, userID)
	if err != nil {
		return false, err
	}

	if err := service.userRepository.MarkEmailConfirmed(context, user.ID); err != nil {
		return false, fmt.Errorf("account_service_confirm_failed: %w", err)
	}

	// Single use.
	_ = service.confirmTokenRepository.Delete(context, token)

	awaitingApproval := site.RequireApprovalBeforeLogin && !user.Approved
	return awaitingApproval, nil
}

/*
ResendConfirmation issues a fresh confirmation link for an email address.

Description: Silent on unknown or already-confirmed addresses so the
endpoint cannot be used to probe for accounts.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - email: string

Returns:
  - error: Token generation or storage failures
*/
func (service *Service) ResendConfirmation(context context.Context, site *tenant.Site, email string) error {
	user, err := service.userRepository.FindByEmail(context, site.ID, email)
	if err != nil {
		return nil
	}
	if user.EmailConfirmed {
		return nil
	}

	token, err := sec.GenerateSecureToken(ConfirmTokenLength)
	if err != nil {
		return fmt.Errorf("account_service_confirm_token_failed: %w", err)
	}
	if err := service.confirmTokenRepository.Set(context, token, user.ID, ConfirmTokenTTL); err != nil {
		return fmt.Errorf("account_service_confirm_store_failed: %w", err)
	}

	service.notifier.ConfirmationRequested(site, user, token)
	return nil
}

// # Username Availability

/*
UsernameAvailable reports whether a username can be used on the site.

Description: A name held by the requesting user themselves counts as
available, so profile edits that keep the current name pass validation.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - userID: string (requester; empty for anonymous checks)
  - username: string

Returns:
  - bool: True when the name is free or held by the requester
  - error: Database retrieval failures
*/
func (service *Service) UsernameAvailable(context context.Context, site *tenant.Site, userID string, username string) (bool, error) {
	existing, err := service.userRepository.FindByUsername(context, site.ID, username)
	if err != nil {
		if apperr.IsAppError(err) {
			return true, nil
		}
		return false, err
	}

	return existing.ID == userID && userID != "", nil
}
