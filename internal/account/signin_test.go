// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/tenant"
)

const uniformRefusal = "Invalid login attempt."

/*
TestSignIn_Success verifies the happy path: session issued, lockout counters
cleared, and the source address recorded.
*/
func TestSignIn_Success(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	result, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:     "jane@example.com",
		Password:  "hunter2secret",
		IPAddress: "203.0.113.7",
	})

	require.NoError(t, err)
	assert.Equal(t, account.OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Session)
	assert.Equal(t, "access-u1", result.Session.AccessToken)
	assert.NotEmpty(t, result.Session.RefreshToken)
	assert.Equal(t, 1, env.sessions.activeCount("u1"))
	require.Len(t, env.loginIPs.entries, 1)
	assert.Equal(t, "203.0.113.7", env.loginIPs.entries[0].IPAddress)
}

/*
TestSignIn_UniformRefusalMessage verifies that every refusal path carries the
same client-visible message, so responses never reveal whether an account
exists, is locked, or failed a policy gate.
*/
func TestSignIn_UniformRefusalMessage(t *testing.T) {
	tests := []struct {
		name        string
		configure   func(env *testEnv, site *account.SignInInput, s *siteMutator)
		wantOutcome account.Outcome
	}{
		{
			name: "unknown_account",
			configure: func(env *testEnv, input *account.SignInInput, _ *siteMutator) {
				input.Login = "nobody@example.com"
			},
			wantOutcome: account.OutcomeFailed,
		},
		{
			name: "wrong_password",
			configure: func(env *testEnv, input *account.SignInInput, _ *siteMutator) {
				input.Password = "not-the-password"
			},
			wantOutcome: account.OutcomeFailed,
		},
		{
			name: "unconfirmed_email",
			configure: func(env *testEnv, _ *account.SignInInput, s *siteMutator) {
				s.requireConfirmed = true
				env.users.users["u1"].EmailConfirmed = false
			},
			wantOutcome: account.OutcomeNotAllowed,
		},
		{
			name: "pending_approval",
			configure: func(env *testEnv, _ *account.SignInInput, s *siteMutator) {
				s.requireApproval = true
				env.users.users["u1"].Approved = false
			},
			wantOutcome: account.OutcomeNotAllowed,
		},
		{
			name: "currently_locked",
			configure: func(env *testEnv, _ *account.SignInInput, _ *siteMutator) {
				until := time.Now().Add(10 * time.Minute)
				env.users.users["u1"].LockoutUntil = &until
			},
			wantOutcome: account.OutcomeLockedOut,
		},
		{
			name: "db_auth_disabled",
			configure: func(_ *testEnv, _ *account.SignInInput, s *siteMutator) {
				s.disableDbAuth = true
			},
			wantOutcome: account.OutcomeNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			site := testSite()
			env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

			input := account.SignInInput{Login: "jane@example.com", Password: "hunter2secret"}
			mutator := &siteMutator{}
			tt.configure(env, &input, mutator)
			mutator.apply(site)

			result, err := env.service.SignIn(context.Background(), site, input)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Equal(t, uniformRefusal, result.Message)
			assert.Nil(t, result.Session)
		})
	}
}

// siteMutator defers site policy flips until after seeding.
type siteMutator struct {
	requireConfirmed bool
	requireApproval  bool
	disableDbAuth    bool
}

func (m *siteMutator) apply(site *tenant.Site) {
	site.RequireConfirmedEmail = m.requireConfirmed
	site.RequireApprovalBeforeLogin = m.requireApproval
	site.DisableDbAuth = m.disableDbAuth
}

/*
TestSignIn_UnconfirmedResendsLink verifies the side effect of the
confirmation gate: a fresh confirmation email goes out with the refusal.
*/
func TestSignIn_UnconfirmedResendsLink(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.RequireConfirmedEmail = true
	user := env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")
	user.EmailConfirmed = false

	result, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})

	require.NoError(t, err)
	assert.Equal(t, account.OutcomeNotAllowed, result.Outcome)
	require.Len(t, env.notifier.confirmations, 1)

	// The dispatched token is redeemable.
	storedUserID, err := env.confirmStore.Get(context.Background(), env.notifier.confirmations[0])
	require.NoError(t, err)
	assert.Equal(t, "u1", storedUserID)
}

/*
TestSignIn_LockoutAfterRepeatedFailures verifies failed-attempt counting and
the lockout trip at the site's ceiling.
*/
func TestSignIn_LockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite() // MaxInvalidPasswordAttempts: 3
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	badAttempt := account.SignInInput{Login: "jane@example.com", Password: "wrong"}

	for attempt := 1; attempt <= 2; attempt++ {
		result, err := env.service.SignIn(context.Background(), site, badAttempt)
		require.NoError(t, err)
		assert.Equal(t, account.OutcomeFailed, result.Outcome)
		assert.Equal(t, attempt, env.users.users["u1"].FailedAttempts)
	}

	// Third strike trips the lockout.
	result, err := env.service.SignIn(context.Background(), site, badAttempt)
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeLockedOut, result.Outcome)
	require.NotNil(t, env.users.users["u1"].LockoutUntil)
	assert.True(t, env.users.users["u1"].LockoutUntil.After(time.Now()))

	// Even the correct password is refused while locked.
	result, err = env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeLockedOut, result.Outcome)
}

/*
TestSignIn_CaptchaGate verifies that the captcha verdict is honored when the
site requires it on login.
*/
func TestSignIn_CaptchaGate(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.RequireCaptchaOnLogin = true
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")
	env.captcha.pass = false

	result, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})

	require.NoError(t, err)
	assert.Equal(t, account.OutcomeFailed, result.Outcome)
	assert.Equal(t, "Captcha verification failed.", result.Message)
}

/*
TestSignIn_UsernameLoginPolicy verifies that a site configured for username
login refuses email identifiers and vice versa.
*/
func TestSignIn_UsernameLoginPolicy(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	site.UseEmailForLogin = false
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	result, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeSuccess, result.Outcome)

	// Email identifier no longer resolves under username policy.
	result, err = env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeFailed, result.Outcome)
}

/*
TestSignIn_TwoFactorBranch verifies that a two-factor account receives a
pending token instead of a session.
*/
func TestSignIn_TwoFactorBranch(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	user := env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")
	user.TwoFactorEnabled = true

	result, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})

	require.NoError(t, err)
	assert.Equal(t, account.OutcomeRequiresTwoFactor, result.Outcome)
	assert.Nil(t, result.Session)
	assert.NotEmpty(t, result.TwoFactorToken)
	assert.Equal(t, []string{account.TwoFactorProviderEmail}, result.TwoFactorProviders)
	assert.Zero(t, env.sessions.activeCount("u1"))
}

/*
TestRefreshSession_Rotation verifies refresh token rotation: the old token
dies, a new session appears, and persistence carries over.
*/
func TestRefreshSession_Rotation(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	signedIn, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
		Remember: true,
	})
	require.NoError(t, err)
	require.Equal(t, account.OutcomeSuccess, signedIn.Outcome)
	assert.True(t, signedIn.Session.IsPersistent)

	refreshed, err := env.service.RefreshSession(context.Background(), site, signedIn.Session.RefreshToken, "agent", "203.0.113.7")
	require.NoError(t, err)
	assert.NotEqual(t, signedIn.Session.RefreshToken, refreshed.RefreshToken)
	assert.True(t, refreshed.IsPersistent)

	// The rotated-out token is no longer redeemable.
	_, err = env.service.RefreshSession(context.Background(), site, signedIn.Session.RefreshToken, "agent", "203.0.113.7")
	assert.Error(t, err)
}

/*
TestSignOut_Idempotent verifies that signing out an unknown token succeeds
and a real token revokes the session.
*/
func TestSignOut_Idempotent(t *testing.T) {
	env := newTestEnv(nil)
	site := testSite()
	env.seedUser("u1", "jane@example.com", "jane", "hunter2secret")

	assert.NoError(t, env.service.SignOut(context.Background(), "never-issued"))

	signedIn, err := env.service.SignIn(context.Background(), site, account.SignInInput{
		Login:    "jane@example.com",
		Password: "hunter2secret",
	})
	require.NoError(t, err)

	require.NoError(t, env.service.SignOut(context.Background(), signedIn.Session.RefreshToken))
	assert.Zero(t, env.sessions.activeCount("u1"))
}
