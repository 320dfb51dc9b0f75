// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package notify delivers account-related messages over email and SMS.

# Architecture

  - Mailer: SMTP delivery via gomail.
  - SmsSender: HTTP gateway delivery for phone-bound security codes.
  - Dispatcher: Supervised background execution; delivery never blocks a
    request and failures are logged instead of silently dropped.
  - AccountNotifier: Binds the pieces into the account domain's contract.
*/
package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/danhque/veranda/internal/platform/config"
)

// Email represents an outgoing email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Mailer sends email through the configured SMTP relay.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewMailer creates a new [Mailer] from the application configuration.
// Without an SMTP host the mailer is disabled and every send fails fast,
// which the dispatcher turns into a logged error rather than a crash.
func NewMailer(cfg *config.Config) *Mailer {
	mailer := &Mailer{
		from:    cfg.SMTPFrom,
		enabled: cfg.MailEnabled(),
	}

	if mailer.enabled {
		mailer.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}

	return mailer
}

// Enabled reports whether the mailer has a usable SMTP relay.
func (mailer *Mailer) Enabled() bool {
	return mailer.enabled
}

/*
Send delivers a single email message.

Parameters:
  - email: Email

Returns:
  - error: Missing recipients, disabled relay, or SMTP failures
*/
func (mailer *Mailer) Send(email Email) error {
	if !mailer.enabled {
		return fmt.Errorf("mailer_disabled: no SMTP relay configured")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("mailer_no_recipients")
	}

	message := gomail.NewMessage()
	message.SetHeader("From", mailer.from)
	message.SetHeader("To", email.To...)
	message.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		message.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			message.AddAlternative("text/plain", email.Body)
		}
	} else {
		message.SetBody("text/plain", email.Body)
	}

	if err := mailer.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("mailer_send_failed: %w", err)
	}

	return nil
}

// SendHTML sends an HTML email.
func (mailer *Mailer) SendHTML(to []string, subject, htmlBody string) error {
	return mailer.Send(Email{To: to, Subject: subject, HTMLBody: htmlBody})
}
