// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package notify

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/tenant"
)

// AccountNotifier implements the account domain's notification contract on
// top of the mailer, the SMS gateway, and the dispatcher.
//
// Every method enqueues and returns immediately; the dispatcher logs
// delivery failures with the job name.
type AccountNotifier struct {
	mailer     *Mailer
	sms        SmsSender
	dispatcher *Dispatcher
	baseURL    string
	logger     *slog.Logger
}

// NewAccountNotifier constructs an [AccountNotifier].
func NewAccountNotifier(mailer *Mailer, sms SmsSender, dispatcher *Dispatcher, baseURL string, logger *slog.Logger) *AccountNotifier {
	return &AccountNotifier{
		mailer:     mailer,
		sms:        sms,
		dispatcher: dispatcher,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// ConfirmationRequested sends the email confirmation link.
func (notifier *AccountNotifier) ConfirmationRequested(site *tenant.Site, user *account.User, token string) {
	link := buildLink(notifier.baseURL, "/account/confirm-email", url.Values{
		"userId": {user.ID},
		"token":  {token},
	})

	to := user.Email
	subject := confirmationSubject(site.DisplayName)
	body := confirmationBody(site.DisplayName, user.DisplayName, link)

	notifier.dispatcher.Go("confirmation_email", func() error {
		return notifier.mailer.SendHTML([]string{to}, subject, body)
	})
}

// PasswordResetRequested sends the password reset link.
func (notifier *AccountNotifier) PasswordResetRequested(site *tenant.Site, user *account.User, token string) {
	link := buildLink(notifier.baseURL, "/account/reset-password", url.Values{
		"token": {token},
	})

	to := user.Email
	subject := resetSubject(site.DisplayName)
	body := resetBody(site.DisplayName, user.DisplayName, link)

	notifier.dispatcher.Go("reset_email", func() error {
		return notifier.mailer.SendHTML([]string{to}, subject, body)
	})
}

// SecurityCodeIssued delivers a two-factor code via the chosen provider.
func (notifier *AccountNotifier) SecurityCodeIssued(site *tenant.Site, user *account.User, provider string, code string) {
	switch provider {
	case account.TwoFactorProviderPhone:
		phone := user.PhoneNumber
		message := securityCodeSms(site.DisplayName, code)

		notifier.dispatcher.Go("security_code_sms", func() error {
			return notifier.sms.Send(context.Background(), phone, message)
		})

	default:
		to := user.Email
		subject := securityCodeSubject(site.DisplayName)
		body := securityCodeBody(site.DisplayName, code)

		notifier.dispatcher.Go("security_code_email", func() error {
			return notifier.mailer.SendHTML([]string{to}, subject, body)
		})
	}
}

// ApprovalRequested notifies the site's approvers about a new account.
// Sites without configured approver addresses get a log line instead, so
// pending accounts never disappear without a trace.
func (notifier *AccountNotifier) ApprovalRequested(site *tenant.Site, user *account.User) {
	recipients := site.ApprovalRecipients()
	if len(recipients) == 0 {
		notifier.logger.Warn("account awaiting approval but site has no approver addresses",
			slog.String("site_id", site.ID),
			slog.String("user_id", user.ID),
		)
		return
	}

	subject := approvalSubject(site.DisplayName)
	body := approvalBody(site.DisplayName, user.DisplayName, user.Email)

	notifier.dispatcher.Go("approval_email", func() error {
		return notifier.mailer.SendHTML(recipients, subject, body)
	})
}
