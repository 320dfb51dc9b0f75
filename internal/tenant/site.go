// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package tenant implements multi-tenant site resolution and policy.

Every request served by Veranda belongs to exactly one Site. The site carries
the account policy knobs (login mode, lockout thresholds, registration rules,
allowed external providers) that the account coordinators consult explicitly.

# Architecture

  - Site: The tenant entity, hydrated once per request.
  - SiteRepository: Postgres-backed lookup by hostname or ID.
  - ResolveSite: Middleware that binds the request Host to a Site in context.

Downstream code receives the site as an explicit parameter; the context value
exists only to bridge the HTTP layer.
*/
package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/danhque/veranda/internal/platform/ctxkey"
	"github.com/danhque/veranda/pkg/slug"
	"github.com/danhque/veranda/pkg/uuid"
)

// # Domain Entities

// Site represents a single tenant and its account policy.
type Site struct {
	ID          string `json:"id"`
	AliasKey    string `json:"alias_key"` // filesystem-safe folder token, see pkg/slug
	DisplayName string `json:"display_name"`
	Theme       string `json:"theme"`

	// Login policy
	UseEmailForLogin      bool `json:"use_email_for_login"`
	AllowPersistentLogin  bool `json:"allow_persistent_login"`
	DisableDbAuth         bool `json:"disable_db_auth"`
	RequireCaptchaOnLogin bool `json:"require_captcha_on_login"`

	// Lockout policy
	MaxInvalidPasswordAttempts int           `json:"max_invalid_password_attempts"`
	LockoutDuration            time.Duration `json:"lockout_duration"`

	// Registration policy
	AllowNewRegistration         bool   `json:"allow_new_registration"`
	RequireConfirmedEmail        bool   `json:"require_confirmed_email"`
	RequireApprovalBeforeLogin   bool   `json:"require_approval_before_login"`
	RequireCaptchaOnRegistration bool   `json:"require_captcha_on_registration"`
	RegistrationPreamble         string `json:"registration_preamble,omitempty"`
	RegistrationAgreement        string `json:"registration_agreement,omitempty"`

	// AccountApprovalEmailCsv lists the recipients notified when a new
	// account is waiting for approval.
	AccountApprovalEmailCsv string `json:"-"`

	// AllowedProviders restricts which external login providers the site offers.
	AllowedProviders []string `json:"allowed_providers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSite creates a site with a fresh ID, an alias key derived from the
// display name, and the default account policy. Provisioning tooling adjusts
// the policy knobs afterwards via Update.
func NewSite(displayName string) *Site {
	now := time.Now()
	return &Site{
		ID:                         uuid.New(),
		AliasKey:                   slug.From(displayName),
		DisplayName:                displayName,
		Theme:                      "default",
		UseEmailForLogin:           true,
		AllowPersistentLogin:       true,
		MaxInvalidPasswordAttempts: 5,
		LockoutDuration:            15 * time.Minute,
		AllowNewRegistration:       true,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
}

// HasAgreement reports whether registration requires accepting terms of use.
func (s *Site) HasAgreement() bool {
	return strings.TrimSpace(s.RegistrationAgreement) != ""
}

// ProviderAllowed reports whether the named external provider is offered by this site.
// An empty allow-list means no external providers are offered.
func (s *Site) ProviderAllowed(name string) bool {
	for _, p := range s.AllowedProviders {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// ApprovalRecipients parses AccountApprovalEmailCsv into a cleaned slice.
func (s *Site) ApprovalRecipients() []string {
	if strings.TrimSpace(s.AccountApprovalEmailCsv) == "" {
		return nil
	}

	parts := strings.Split(s.AccountApprovalEmailCsv, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if clean := strings.TrimSpace(p); clean != "" {
			recipients = append(recipients, clean)
		}
	}
	return recipients
}

// # Context Bridging

// WithSite returns a new context with the resolved site attached.
func WithSite(ctx context.Context, site *Site) context.Context {
	return context.WithValue(ctx, ctxkey.KeySite, site)
}

// FromContext retrieves the resolved [*Site] from the context.
// Returns nil when the request was not resolved to a tenant.
func FromContext(ctx context.Context) *Site {
	site, ok := ctx.Value(ctxkey.KeySite).(*Site)
	if !ok {
		return nil
	}
	return site
}
