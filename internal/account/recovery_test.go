// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/platform/sec"
)

/*
TestForgotPassword_SilentSkips verifies that unknown addresses and
unconfirmed accounts (on confirmation-requiring sites) produce no reset
mail and no distinguishable response.
*/
func TestForgotPassword_SilentSkips(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.RequireConfirmedEmail = true
	user := env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	// Unknown address: silent.
	require.NoError(t, env.service.ForgotPassword(context.Background(), site, "nobody@example.com"))
	assert.Empty(t, env.notifier.resets)

	// Unconfirmed account: silent.
	user.EmailConfirmed = false
	require.NoError(t, env.service.ForgotPassword(context.Background(), site, "jane@example.com"))
	assert.Empty(t, env.notifier.resets)

	// Confirmed account: a redeemable token goes out.
	user.EmailConfirmed = true
	require.NoError(t, env.service.ForgotPassword(context.Background(), site, "jane@example.com"))
	require.Len(t, env.notifier.resets, 1)

	storedUserID, err := env.resetStore.Get(context.Background(), env.notifier.resets[0])
	require.NoError(t, err)
	assert.Equal(t, "u1", storedUserID)
}

/*
TestResetPassword verifies password replacement, session revocation, and
single-use token semantics.
*/
func TestResetPassword(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	// Establish a session that should die with the old password.
	signedIn, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	require.Equal(t, account.OutcomeSuccess, signedIn.Outcome)

	require.NoError(t, env.service.ForgotPassword(context.Background(), site, "jane@example.com"))
	token := env.notifier.resets[0]

	// Bad token refuses.
	assert.Error(t, env.service.ResetPassword(context.Background(), site, "never-issued", "newpassword1"))

	require.NoError(t, env.service.ResetPassword(context.Background(), site, token, "newpassword1"))

	// All sessions are revoked and the new password verifies.
	assert.Zero(t, env.sessions.activeCount("u1"))
	assert.True(t, sec.CheckPasswordHash("newpassword1", env.users.users["u1"].PasswordHash))
	assert.False(t, sec.CheckPasswordHash("hunter2secret", env.users.users["u1"].PasswordHash))

	// Single use.
	assert.Error(t, env.service.ResetPassword(context.Background(), site, token, "anotherpass2"))
}
