// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/tenant"
)

// # Password Recovery

/*
ForgotPassword initiates the forgot-password flow for an email address.

Description: Always silent from the caller's perspective. Unknown addresses
and accounts whose email is still unconfirmed (on sites that require
confirmation) are skipped without any distinguishable response, so the
endpoint cannot be used to probe for accounts.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - email: string

Returns:
  - error: Token generation or storage failures
*/
func (service *Service) ForgotPassword(context context.Context, site *tenant.Site, email string) error {
	user, err := service.userRepository.FindByEmail(context, site.ID, email)
	if err != nil {
		return nil
	}

	// An unconfirmed address cannot prove ownership, so no reset link for it.
	if site.RequireConfirmedEmail && !user.EmailConfirmed {
		return nil
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("account_service_reset_token_failed: %w", err)
	}

	if err := service.resetTokenRepository.Set(context, token, user.ID, ResetTokenTTL); err != nil {
		return fmt.Errorf("account_service_reset_store_failed: %w", err)
	}

	service.notifier.PasswordResetRequested(site, user, token)
	return nil
}

/*
ResetPassword redeems a reset token and replaces the account password.

Description: The token is single-use. Every active session of the account is
revoked so a stolen refresh token dies with the old password.

Parameters:
  - context: context.Context
  - site: *tenant.Site
  - token: string
  - newPassword: string

Returns:
  - error: apperr.NotFound for bad tokens, storage failures otherwise
*/
func (service *Service) ResetPassword(context context.Context, site *tenant.Site, token string, newPassword string) error {
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(context, site.ID, userID)
	if err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("account_service_reset_failed: %w", err)
	}

	// Kill every outstanding session holding the old credential.
	if err := service.sessionRepository.RevokeAll(context, user.ID); err != nil {
		return fmt.Errorf("account_service_reset_revoke_failed: %w", err)
	}

	// Single use.
	_ = service.resetTokenRepository.Delete(context, token)

	return nil
}
