// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/platform/apperr"
)

/*
TestRegister_TerminalExclusivity verifies that each site policy combination
produces exactly one of the three registration terminals.
*/
func TestRegister_TerminalExclusivity(t *testing.T) {
	tests := []struct {
		name             string
		requireConfirmed bool
		requireApproval  bool
		wantStatus       account.RegistrationStatus
	}{
		{"open_site_signs_in", false, false, account.StatusSignedIn},
		{"confirmation_site", true, false, account.StatusConfirmationRequired},
		{"approval_site", false, true, account.StatusPendingApproval},
		// Confirmation wins when both policies are active.
		{"confirmation_before_approval", true, true, account.StatusConfirmationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			site := testSite()
			site.RequireConfirmedEmail = tt.requireConfirmed
			site.RequireApprovalBeforeLogin = tt.requireApproval

			result, err := env.service.Register(context.Background(), site, account.RegisterInput{
				Email:    "jane@example.com",
				Password: "hunter2secret",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)

			// Exactly one terminal: a session exists only for signed-in.
			if tt.wantStatus == account.StatusSignedIn {
				assert.NotNil(t, result.Session)
			} else {
				assert.Nil(t, result.Session)
			}

			// Approval seeding follows the site policy.
			assert.Equal(t, !tt.requireApproval, result.User.Approved)
		})
	}
}

/*
TestRegister_DerivesUsername verifies that a blank username is derived from
the email by stripping '@' and '.'.
*/
func TestRegister_DerivesUsername(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()

	result, err := env.service.Register(context.Background(), site, account.RegisterInput{
		Email:    "a.b@example.com",
		Password: "hunter2secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "abexamplecom", result.User.Username)
}

/*
TestRegister_Conflicts verifies the email and username uniqueness gates.
*/
func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	_, err := env.service.Register(context.Background(), site, account.RegisterInput{
		Email:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 409, appError.HTTPStatus)

	_, err = env.service.Register(context.Background(), site, account.RegisterInput{
		Username: "jane",
		Email:    "other@example.com",
		Password: "hunter2secret",
	})
	require.Error(t, err)
}

/*
TestRegister_ClosedSiteAndAgreement verifies the registration-open and
agreement gates.
*/
func TestRegister_ClosedSiteAndAgreement(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.AllowNewRegistration = false

	_, err := env.service.Register(context.Background(), site, account.RegisterInput{
		Email:    "jane@example.com",
		Password: "hunter2secret",
	})
	assert.Error(t, err)

	site.AllowNewRegistration = true
	site.RegistrationAgreement = "You agree to the things."

	_, err = env.service.Register(context.Background(), site, account.RegisterInput{
		Email:    "jane@example.com",
		Password: "hunter2secret",
	})
	assert.Error(t, err)

	result, err := env.service.Register(context.Background(), site, account.RegisterInput{
		Email:             "jane@example.com",
		Password:          "hunter2secret",
		AgreementAccepted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, account.StatusSignedIn, result.Status)
}

/*
TestConfirmEmail verifies token redemption, the user/token pairing check,
and the awaiting-approval report.
*/
func TestConfirmEmail(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.RequireConfirmedEmail = true
	site.RequireApprovalBeforeLogin = true

	result, err := env.service.Register(context.Background(), site, account.RegisterInput{
		Email:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	require.Equal(t, account.StatusConfirmationRequired, result.Status)
	require.Len(t, env.notifier.confirmations, 1)
	token := env.notifier.confirmations[0]

	// Wrong user refuses and leaves the account unconfirmed.
	_, err = env.service.ConfirmEmail(context.Background(), site, "someone-else", token)
	require.Error(t, err)
	assert.False(t, env.users.users[result.User.ID].EmailConfirmed)

	// Right user confirms; approval is still outstanding on this site.
	awaitingApproval, err := env.service.ConfirmEmail(context.Background(), site, result.User.ID, token)
	require.NoError(t, err)
	assert.True(t, awaitingApproval)
	assert.True(t, env.users.users[result.User.ID].EmailConfirmed)

	// Single use.
	_, err = env.service.ConfirmEmail(context.Background(), site, result.User.ID, token)
	assert.Error(t, err)
}

/*
TestResendConfirmation verifies silence for unknown and already-confirmed
addresses.
*/
func TestResendConfirmation(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret") // confirmed

	require.NoError(t, env.service.ResendConfirmation(context.Background(), site, "nobody@example.com"))
	require.NoError(t, env.service.ResendConfirmation(context.Background(), site, "jane@example.com"))
	assert.Empty(t, env.notifier.confirmations)

	env.users.users["u1"].EmailConfirmed = false
	require.NoError(t, env.service.ResendConfirmation(context.Background(), site, "jane@example.com"))
	assert.Len(t, env.notifier.confirmations, 1)
}

/*
TestUsernameAvailable verifies the availability check, including the
requester's own-name carve-out.
*/
func TestUsernameAvailable(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	tests := []struct {
		name     string
		userID   string
		username string
		want     bool
	}{
		{"free_name", "", "newcomer", true},
		{"taken_by_other", "", "jane", false},
		{"taken_by_other_user", "u2", "jane", false},
		{"own_name", "u1", "jane", true},
		{"own_name_different_case", "u1", "JANE", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			available, err := env.service.UsernameAvailable(context.Background(), site, tt.userID, tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.want, available)
		})
	}
}

/*
TestConfirmExternal_UsernameCollisionFallsBackToEmail verifies the external
enrollment collision rule: derived name taken, use the full email.
*/
func TestConfirmExternal_UsernameCollisionFallsBackToEmail(t *testing.T) {
	providers := map[string]account.ProviderClient{
		"google": stubProviderClient{profile: account.ProviderProfile{
			Key:   "google-sub-1",
			Email: "jane@example.com",
			Name:  "Jane",
		}},
	}

	env := newTestEnv(providers)
	site := testSite()
	site.AllowedProviders = []string{"google"}

	// Occupy the derived name with a different account.
	env.seedUser("u1", "other@example.com", "janeexamplecom", "hunter2secret")

	callback, err := env.service.CompleteExternal(context.Background(), site, "google", "auth-code", "https://acme/cb", "agent", "203.0.113.7")
	require.NoError(t, err)
	require.True(t, callback.NeedsConfirmation)
	require.NotEmpty(t, callback.PendingToken)

	result, err := env.service.ConfirmExternal(context.Background(), site, account.ConfirmExternalInput{
		PendingToken: callback.PendingToken,
	})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", result.User.Username)
	assert.Equal(t, account.StatusSignedIn, result.Status)

	// The binding exists, so the next callback signs straight in.
	again, err := env.service.CompleteExternal(context.Background(), site, "google", "auth-code", "https://acme/cb", "agent", "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, again.NeedsConfirmation)
	require.NotNil(t, again.SignIn)
	assert.Equal(t, account.OutcomeSuccess, again.SignIn.Outcome)
}

/*
TestBeginExternal_ProviderAllowList verifies that sites only expose their
enabled providers.
*/
func TestBeginExternal_ProviderAllowList(t *testing.T) {
	providers := map[string]account.ProviderClient{
		"google": stubProviderClient{profile: account.ProviderProfile{Key: "k", Email: "e@x.co"}},
	}

	env := newTestEnv(providers)
	site := testSite() // no AllowedProviders

	_, err := env.service.BeginExternal(site, "google", "state", "https://acme/cb")
	assert.Error(t, err)

	site.AllowedProviders = []string{"google"}
	url, err := env.service.BeginExternal(site, "google", "state", "https://acme/cb")
	require.NoError(t, err)
	assert.Contains(t, url, "state=state")
}
