// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package provider implements OAuth 2.0 authorization-code clients for the
external sign-in providers.

Each provider is the same generic client with different endpoints and a
profile extractor; adding a provider means adding a constructor, not a new
protocol implementation. The package fulfills the account domain's
[account.ProviderClient] contract.
*/
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/platform/config"
)

// Client is a generic OAuth 2.0 authorization-code client.
type Client struct {
	httpClient   *http.Client
	name         string
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	userinfoURL  string
	scopes       []string

	// extractProfile maps the provider's userinfo payload onto the
	// domain profile.
	extractProfile func(payload map[string]any) (*account.ProviderProfile, error)
}

// # Provider Constructors

// NewGoogle builds the Google OAuth client.
func NewGoogle(cfg *config.Config) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		name:         "google",
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		authURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:     "https://oauth2.googleapis.com/token",
		userinfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		scopes:       []string{"openid", "email", "profile"},
		extractProfile: func(payload map[string]any) (*account.ProviderProfile, error) {
			subject, _ := payload["sub"].(string)
			if subject == "" {
				return nil, fmt.Errorf("provider_google_missing_subject")
			}
			email, _ := payload["email"].(string)
			name, _ := payload["name"].(string)
			return &account.ProviderProfile{Key: subject, Email: email, Name: name}, nil
		},
	}
}

// NewGitHub builds the GitHub OAuth client.
func NewGitHub(cfg *config.Config) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		name:         "github",
		clientID:     cfg.GitHubClientID,
		clientSecret: cfg.GitHubClientSecret,
		authURL:      "https://github.com/login/oauth/authorize",
		tokenURL:     "https://github.com/login/oauth/access_token",
		userinfoURL:  "https://api.github.com/user",
		scopes:       []string{"read:user", "user:email"},
		extractProfile: func(payload map[string]any) (*account.ProviderProfile, error) {
			id, ok := payload["id"].(float64)
			if !ok {
				return nil, fmt.Errorf("provider_github_missing_id")
			}
			email, _ := payload["email"].(string)
			name, _ := payload["name"].(string)
			if name == "" {
				name, _ = payload["login"].(string)
			}
			return &account.ProviderProfile{
				Key:   fmt.Sprintf("%.0f", id),
				Email: email,
				Name:  name,
			}, nil
		},
	}
}

// Registry builds the provider map for the account service from whatever
// credentials are configured. Providers without credentials are omitted.
func Registry(cfg *config.Config) map[string]account.ProviderClient {
	registry := make(map[string]account.ProviderClient)

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		registry["google"] = NewGoogle(cfg)
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		registry["github"] = NewGitHub(cfg)
	}

	return registry
}

// SetEndpoints overrides the token and userinfo endpoints. Intended for
// tests pointing the client at stub servers.
func (client *Client) SetEndpoints(tokenURL, userinfoURL string) {
	client.tokenURL = tokenURL
	client.userinfoURL = userinfoURL
}

// # OAuth Flow

// AuthorizeURL builds the provider's authorization redirect URL.
func (client *Client) AuthorizeURL(state string, redirectURI string) string {
	query := url.Values{}
	query.Set("client_id", client.clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", strings.Join(client.scopes, " "))
	query.Set("state", state)

	return client.authURL + "?" + query.Encode()
}

// tokenResponse is the subset of the token exchange reply we care about.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

/*
Exchange trades an authorization code for the asserted profile.

Description: Two round-trips: code-for-token at the token endpoint, then
token-for-profile at the userinfo endpoint.

Parameters:
  - context: context.Context
  - code: string
  - redirectURI: string (Must match the one used in AuthorizeURL)

Returns:
  - *account.ProviderProfile: Stable subject key plus email and name
  - error: Transport, decoding, or provider rejections
*/
func (client *Client) Exchange(context context.Context, code string, redirectURI string) (*account.ProviderProfile, error) {
	accessToken, err := client.exchangeCode(context, code, redirectURI)
	if err != nil {
		return nil, err
	}

	payload, err := client.fetchUserinfo(context, accessToken)
	if err != nil {
		return nil, err
	}

	return client.extractProfile(payload)
}

// exchangeCode performs the code-for-token round-trip.
func (client *Client) exchangeCode(context context.Context, code string, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", client.clientID)
	form.Set("client_secret", client.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)

	request, err := http.NewRequestWithContext(context, http.MethodPost, client.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("provider_%s_token_request_failed: %w", client.name, err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("provider_%s_token_exchange_failed: %w", client.name, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider_%s_token_rejected: status %d", client.name, response.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(response.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("provider_%s_token_decode_failed: %w", client.name, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("provider_%s_token_missing", client.name)
	}

	return token.AccessToken, nil
}

// fetchUserinfo performs the token-for-profile round-trip.
func (client *Client) fetchUserinfo(context context.Context, accessToken string) (map[string]any, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, client.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("provider_%s_userinfo_request_failed: %w", client.name, err)
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("provider_%s_userinfo_failed: %w", client.name, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider_%s_userinfo_rejected: status %d", client.name, response.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("provider_%s_userinfo_decode_failed: %w", client.name, err)
	}

	return payload, nil
}
