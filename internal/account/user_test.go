// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/danhque/veranda/internal/account"
)

/*
TestDeriveUsername verifies email-to-username derivation, including its
idempotence on already-derived values.
*/
func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"simple", "jane@example.com", "janeexamplecom"},
		{"dotted_local_part", "a.b@example.com", "abexamplecom"},
		{"multiple_dots", "first.middle.last@sub.example.co", "firstmiddlelastsubexampleco"},
		{"already_derived", "janeexamplecom", "janeexamplecom"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.DeriveUsername(tt.email))
		})
	}
}

/*
TestUser_IsLockedOut verifies lockout evaluation against an instant.
*/
func TestUser_IsLockedOut(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)
	past := now.Add(-5 * time.Minute)

	assert.False(t, (&account.User{}).IsLockedOut(now))
	assert.True(t, (&account.User{LockoutUntil: &future}).IsLockedOut(now))
	assert.False(t, (&account.User{LockoutUntil: &past}).IsLockedOut(now))
}

/*
TestTwoFactorProviders verifies channel availability rules: Email requires a
confirmed address, Phone requires a number on file.
*/
func TestTwoFactorProviders(t *testing.T) {
	tests := []struct {
		name string
		user account.User
		want []string
	}{
		{"none", account.User{}, nil},
		{"email_only", account.User{EmailConfirmed: true}, []string{account.TwoFactorProviderEmail}},
		{"phone_only", account.User{PhoneNumber: "+84123456789"}, []string{account.TwoFactorProviderPhone}},
		{
			"both",
			account.User{EmailConfirmed: true, PhoneNumber: "+84123456789"},
			[]string{account.TwoFactorProviderEmail, account.TwoFactorProviderPhone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.TwoFactorProviders(&tt.user))
		})
	}
}
