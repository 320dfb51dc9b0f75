// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package captcha verifies client captcha responses against a verification
service speaking the reCAPTCHA wire protocol.

Verification is site-policy driven: sites that never enable captcha gates
are unaffected, and a deployment without a configured secret verifies
everything as passed so development environments need no captcha keys.
*/
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client verifies captcha responses over HTTP.
type Client struct {
	httpClient *http.Client
	verifyURL  string
	secret     string
}

// NewClient constructs a verification [Client]. An empty secret disables
// verification (every response passes).
func NewClient(verifyURL, secret string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		verifyURL:  verifyURL,
		secret:     secret,
	}
}

// verifyResponse is the subset of the service's reply we care about.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

/*
Verify checks a client-supplied captcha response token.

Parameters:
  - context: context.Context
  - response: string (Token produced by the client-side widget)
  - remoteIP: string (Optional; forwarded to the service when present)

Returns:
  - bool: Whether the service accepted the response
  - error: Transport or decoding failures (a rejected response is not an error)
*/
func (client *Client) Verify(context context.Context, response string, remoteIP string) (bool, error) {

	// No secret means verification is disabled for this deployment.
	if client.secret == "" {
		return true, nil
	}

	if response == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", client.secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, client.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("captcha_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	reply, err := client.httpClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("captcha_verify_failed: %w", err)
	}
	defer reply.Body.Close()

	var verdict verifyResponse
	if err := json.NewDecoder(reply.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("captcha_decode_failed: %w", err)
	}

	return verdict.Success, nil
}
