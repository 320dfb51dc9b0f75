// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danhque/veranda/internal/platform/config"
)

// SmsSender delivers short text messages to a phone number.
type SmsSender interface {
	// Send delivers one message. Blocking; callers run it on the dispatcher.
	Send(context context.Context, phoneNumber string, message string) error
}

// HTTPSmsSender posts messages to a JSON SMS gateway.
type HTTPSmsSender struct {
	client     *http.Client
	gatewayURL string
	apiKey     string
}

// NewSmsSender builds the gateway-backed sender, or a disabled sender when
// no gateway is configured.
func NewSmsSender(cfg *config.Config) SmsSender {
	if cfg.SMSGatewayURL == "" {
		return disabledSmsSender{}
	}

	return &HTTPSmsSender{
		client:     &http.Client{Timeout: 10 * time.Second},
		gatewayURL: cfg.SMSGatewayURL,
		apiKey:     cfg.SMSGatewayKey,
	}
}

// smsPayload is the gateway's request body.
type smsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

/*
Send posts one message to the gateway.

Parameters:
  - context: context.Context
  - phoneNumber: string
  - message: string

Returns:
  - error: Serialization, transport, or non-2xx gateway responses
*/
func (sender *HTTPSmsSender) Send(context context.Context, phoneNumber string, message string) error {
	payload, err := json.Marshal(smsPayload{To: phoneNumber, Message: message})
	if err != nil {
		return fmt.Errorf("sms_marshal_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, sender.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if sender.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+sender.apiKey)
	}

	response, err := sender.client.Do(request)
	if err != nil {
		return fmt.Errorf("sms_send_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("sms_gateway_rejected: status %d", response.StatusCode)
	}

	return nil
}

// disabledSmsSender fails every send; used when no gateway is configured.
type disabledSmsSender struct{}

func (disabledSmsSender) Send(context.Context, string, string) error {
	return fmt.Errorf("sms_disabled: no gateway configured")
}
