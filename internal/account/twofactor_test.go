// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/account"
)

// beginTwoFactorSignIn drives a two-factor account through the password gate
// and returns the pending token.
func beginTwoFactorSignIn(t *testing.T, env *testEnv) string {
	t.Helper()

	user := env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")
	user.TwoFactorEnabled = true

	result, err := env.service.SignIn(context.Background(), testSite(), account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	require.Equal(t, account.OutcomeRequiresTwoFactor, result.Outcome)
	return result.TwoFactorToken
}

/*
TestSendCode verifies code dispatch for a valid pending token and refusal
for unknown tokens and unavailable providers.
*/
func TestSendCode(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	pendingToken := beginTwoFactorSignIn(t, env)

	// Unknown token.
	err := env.service.SendCode(context.Background(), site, "never-issued", account.TwoFactorProviderEmail)
	assert.Error(t, err)
	assert.Empty(t, env.notifier.codes)

	// Phone is unavailable: no number on file.
	err = env.service.SendCode(context.Background(), site, pendingToken, account.TwoFactorProviderPhone)
	assert.Error(t, err)

	// Email works and stores a redeemable numeric code.
	err = env.service.SendCode(context.Background(), site, pendingToken, account.TwoFactorProviderEmail)
	require.NoError(t, err)
	require.Len(t, env.notifier.codes, 1)
	assert.Len(t, env.notifier.codes[0], account.TwoFactorCodeDigits)
	assert.Equal(t, account.TwoFactorProviderEmail, env.notifier.codeProviders[0])

	stored, err := env.twoFactor.GetCode(context.Background(), "u1", account.TwoFactorProviderEmail)
	require.NoError(t, err)
	assert.Equal(t, env.notifier.codes[0], stored)
}

/*
TestVerifyCode_Success verifies that a correct code establishes the session
and consumes both the code and the pending token.
*/
func TestVerifyCode_Success(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	pendingToken := beginTwoFactorSignIn(t, env)

	require.NoError(t, env.service.SendCode(context.Background(), site, pendingToken, account.TwoFactorProviderEmail))
	code := env.notifier.codes[0]

	result, err := env.service.VerifyCode(context.Background(), site, account.VerifyCodeInput{
		PendingToken: pendingToken,
		Provider:     account.TwoFactorProviderEmail,
		Code:         code,
	})

	require.NoError(t, err)
	assert.Equal(t, account.OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Session)
	assert.Equal(t, 1, env.sessions.activeCount("u1"))

	// Replays die: both the pending token and the code are gone.
	replay, err := env.service.VerifyCode(context.Background(), site, account.VerifyCodeInput{
		PendingToken: pendingToken,
		Provider:     account.TwoFactorProviderEmail,
		Code:         code,
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeFailed, replay.Outcome)
}

/*
TestVerifyCode_RememberClient verifies that a remembered browser skips the
two-factor challenge on the next password sign-in, while strangers still
get challenged.
*/
func TestVerifyCode_RememberClient(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	pendingToken := beginTwoFactorSignIn(t, env)

	require.NoError(t, env.service.SendCode(context.Background(), site, pendingToken, account.TwoFactorProviderEmail))

	result, err := env.service.VerifyCode(context.Background(), site, account.VerifyCodeInput{
		PendingToken:   pendingToken,
		Provider:       account.TwoFactorProviderEmail,
		Code:           env.notifier.codes[0],
		RememberClient: true,
	})
	require.NoError(t, err)
	require.Equal(t, account.OutcomeSuccess, result.Outcome)
	require.NotEmpty(t, result.TrustedClientToken)

	// The trusted browser signs straight in.
	trusted, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:              "jane@example.com",
		Password:           "hunter2secret",
		TrustedClientToken: result.TrustedClientToken,
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeSuccess, trusted.Outcome)

	// A browser without the grant still gets challenged.
	stranger, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:              "jane@example.com",
		Password:           "hunter2secret",
		TrustedClientToken: "forged-grant",
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeRequiresTwoFactor, stranger.Outcome)
}

/*
TestVerifyCode_WrongCodeCountsTowardLockout verifies that bad codes share
the password gate's lockout ceiling.
*/
func TestVerifyCode_WrongCodeCountsTowardLockout(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite() // MaxInvalidPasswordAttempts: 3
	pendingToken := beginTwoFactorSignIn(t, env)

	require.NoError(t, env.service.SendCode(context.Background(), site, pendingToken, account.TwoFactorProviderEmail))

	badAttempt := account.VerifyCodeInput{
		PendingToken: pendingToken,
		Provider:     account.TwoFactorProviderEmail,
		Code:         "000000",
	}

	for attempt := 1; attempt <= 2; attempt++ {
		result, err := env.service.VerifyCode(context.Background(), site, badAttempt)
		require.NoError(t, err)
		assert.Equal(t, account.OutcomeFailed, result.Outcome)
	}

	result, err := env.service.VerifyCode(context.Background(), site, badAttempt)
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeLockedOut, result.Outcome)

	// The correct code is refused while locked.
	correct := badAttempt
	correct.Code = env.notifier.codes[0]
	result, err = env.service.VerifyCode(context.Background(), site, correct)
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeLockedOut, result.Outcome)
}
