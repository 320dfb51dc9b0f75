// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package captcha_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/captcha"
)

/*
TestClient_Verify verifies verdict mapping against a stub verification
service.
*/
func TestClient_Verify(t *testing.T) {
	var receivedResponse, receivedRemoteIP string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		receivedResponse = r.Form.Get("response")
		receivedRemoteIP = r.Form.Get("remoteip")

		if receivedResponse == "good-token" {
			w.Write([]byte(`{"success": true}`))
			return
		}
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer server.Close()

	client := captcha.NewClient(server.URL, "secret-key")

	passed, err := client.Verify(context.Background(), "good-token", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, passed)
	assert.Equal(t, "good-token", receivedResponse)
	assert.Equal(t, "203.0.113.7", receivedRemoteIP)

	passed, err = client.Verify(context.Background(), "bad-token", "")
	require.NoError(t, err)
	assert.False(t, passed)
}

/*
TestClient_DisabledWithoutSecret verifies that deployments without a secret
pass everything and never call the service.
*/
func TestClient_DisabledWithoutSecret(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := captcha.NewClient(server.URL, "")

	passed, err := client.Verify(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.True(t, passed)
	assert.False(t, called)
}

/*
TestClient_EmptyResponseFailsFast verifies that a blank widget token is
rejected without a service round-trip.
*/
func TestClient_EmptyResponseFailsFast(t *testing.T) {
	client := captcha.NewClient("http://unreachable.invalid", "secret-key")

	passed, err := client.Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, passed)
}
