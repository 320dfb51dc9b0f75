// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/tenant"
)

// mockSiteRepository is an in-memory SiteRepository keyed by hostname.
type mockSiteRepository struct {
	byHost map[string]*tenant.Site
}

func (m *mockSiteRepository) FindByHost(_ context.Context, host string) (*tenant.Site, error) {
	if site, ok := m.byHost[host]; ok {
		return site, nil
	}
	return nil, apperr.NotFound("Site")
}

func (m *mockSiteRepository) FindByID(_ context.Context, id string) (*tenant.Site, error) {
	for _, site := range m.byHost {
		if site.ID == id {
			return site, nil
		}
	}
	return nil, apperr.NotFound("Site")
}

func (m *mockSiteRepository) Create(_ context.Context, site *tenant.Site, host string) error {
	m.byHost[host] = site
	return nil
}

func (m *mockSiteRepository) Update(_ context.Context, _ *tenant.Site) error { return nil }

func (m *mockSiteRepository) AddHost(_ context.Context, siteID, host string) error {
	site, err := m.FindByID(context.Background(), siteID)
	if err != nil {
		return err
	}
	m.byHost[host] = site
	return nil
}

/*
TestResolveSite_KnownHost verifies host→site resolution and context injection.
*/
func TestResolveSite_KnownHost(t *testing.T) {
	repo := &mockSiteRepository{byHost: map[string]*tenant.Site{
		"acme.example.com": {ID: "site-1", AliasKey: "acme", Theme: "default"},
	}}

	var resolved *tenant.Site
	handler := tenant.ResolveSite(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = tenant.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		host string
	}{
		{"plain_host", "acme.example.com"},
		{"host_with_port", "acme.example.com:8080"},
		{"mixed_case_host", "Acme.Example.COM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved = nil
			request := httptest.NewRequest(http.MethodGet, "http://placeholder/", nil)
			request.Host = tt.host
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			require.NotNil(t, resolved)
			assert.Equal(t, "site-1", resolved.ID)
		})
	}
}

/*
TestResolveSite_UnknownHost verifies that unmapped hosts are rejected with 404
before any downstream handler runs.
*/
func TestResolveSite_UnknownHost(t *testing.T) {
	repo := &mockSiteRepository{byHost: map[string]*tenant.Site{}}

	downstreamCalled := false
	handler := tenant.ResolveSite(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamCalled = true
	}))

	request := httptest.NewRequest(http.MethodGet, "http://placeholder/", nil)
	request.Host = "nobody.example.com"
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.False(t, downstreamCalled)
}

/*
TestNewSite verifies the derived alias key and the default account policy.
*/
func TestNewSite(t *testing.T) {
	site := tenant.NewSite("Acmé Corp")

	assert.NotEmpty(t, site.ID)
	assert.Equal(t, "acme-corp", site.AliasKey)
	assert.Equal(t, "Acmé Corp", site.DisplayName)
	assert.True(t, site.UseEmailForLogin)
	assert.True(t, site.AllowNewRegistration)
	assert.Equal(t, 5, site.MaxInvalidPasswordAttempts)
}

/*
TestSite_ApprovalRecipients checks CSV parsing of approval notification addresses.
*/
func TestSite_ApprovalRecipients(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "admin@acme.com", []string{"admin@acme.com"}},
		{"multiple_with_spaces", "a@acme.com, b@acme.com ,c@acme.com", []string{"a@acme.com", "b@acme.com", "c@acme.com"}},
		{"trailing_comma", "a@acme.com,", []string{"a@acme.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := &tenant.Site{AccountApprovalEmailCsv: tt.csv}
			assert.Equal(t, tt.want, site.ApprovalRecipients())
		})
	}
}

/*
TestSite_ProviderAllowed checks the external provider allow-list.
*/
func TestSite_ProviderAllowed(t *testing.T) {
	site := &tenant.Site{AllowedProviders: []string{"google", "github"}}

	assert.True(t, site.ProviderAllowed("google"))
	assert.True(t, site.ProviderAllowed("Google")) // case-insensitive
	assert.False(t, site.ProviderAllowed("facebook"))

	empty := &tenant.Site{}
	assert.False(t, empty.ProviderAllowed("google"))
}
