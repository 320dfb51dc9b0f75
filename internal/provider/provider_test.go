// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/platform/config"
	"github.com/danhque/veranda/internal/provider"
)

/*
TestGoogle_Exchange verifies the two-round-trip exchange against stub
token and userinfo endpoints.
*/
func TestGoogle_Exchange(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-access-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"sub": "google-sub-1", "email": "jane@example.com", "name": "Jane"}`))
	}))
	defer userinfo.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.Form.Get("code"))
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "https://acme.example.com/cb", r.Form.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "provider-access-token", "token_type": "Bearer"}`))
	}))
	defer token.Close()

	client := provider.NewGoogle(&config.Config{GoogleClientID: "cid", GoogleClientSecret: "secret"})
	client.SetEndpoints(token.URL, userinfo.URL)

	profile, err := client.Exchange(context.Background(), "auth-code", "https://acme.example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", profile.Key)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "Jane", profile.Name)
}

/*
TestAuthorizeURL verifies the authorization redirect parameters.
*/
func TestAuthorizeURL(t *testing.T) {
	client := provider.NewGitHub(&config.Config{GitHubClientID: "cid", GitHubClientSecret: "secret"})

	authorizeURL := client.AuthorizeURL("csrf-state", "https://acme.example.com/cb")

	assert.Contains(t, authorizeURL, "https://github.com/login/oauth/authorize?")
	assert.Contains(t, authorizeURL, "client_id=cid")
	assert.Contains(t, authorizeURL, "state=csrf-state")
	assert.Contains(t, authorizeURL, "response_type=code")
}

/*
TestRegistry verifies that only providers with credentials are registered.
*/
func TestRegistry(t *testing.T) {
	registry := provider.Registry(&config.Config{
		GoogleClientID:     "cid",
		GoogleClientSecret: "secret",
	})

	assert.Contains(t, registry, "google")
	assert.NotContains(t, registry, "github")

	assert.Empty(t, provider.Registry(&config.Config{}))
}
