// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package notify

import (
	"fmt"
	"net/url"
)

// Email bodies are deliberately plain: a heading, one sentence, one link or
// code. Sites that want richer mail override the EmailTemplates view
// location in their theme tree.

func confirmationSubject(siteName string) string {
	return fmt.Sprintf("Confirm your email on %s", siteName)
}

func confirmationBody(siteName, displayName, link string) string {
	return fmt.Sprintf(`<html><body>
<h2>Welcome to %s</h2>
<p>Hi %s,</p>
<p>Please confirm your email address by following this link:</p>
<p><a href="%s">Confirm my email</a></p>
<p>If you did not create this account, you can ignore this message.</p>
</body></html>`, siteName, displayName, link)
}

func resetSubject(siteName string) string {
	return fmt.Sprintf("Reset your password on %s", siteName)
}

func resetBody(siteName, displayName, link string) string {
	return fmt.Sprintf(`<html><body>
<h2>%s password reset</h2>
<p>Hi %s,</p>
<p>A password reset was requested for your account. Follow this link to choose a new password:</p>
<p><a href="%s">Reset my password</a></p>
<p>The link expires in one hour. If you did not request a reset, you can ignore this message.</p>
</body></html>`, siteName, displayName, link)
}

func securityCodeSubject(siteName string) string {
	return fmt.Sprintf("Your %s security code", siteName)
}

func securityCodeBody(siteName, code string) string {
	return fmt.Sprintf(`<html><body>
<h2>%s sign-in</h2>
<p>Your security code is:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p>
<p>The code expires in five minutes.</p>
</body></html>`, siteName, code)
}

func securityCodeSms(siteName, code string) string {
	return fmt.Sprintf("%s security code: %s", siteName, code)
}

func approvalSubject(siteName string) string {
	return fmt.Sprintf("New account awaiting approval on %s", siteName)
}

func approvalBody(siteName, displayName, email string) string {
	return fmt.Sprintf(`<html><body>
<h2>%s account approval</h2>
<p>A new account is waiting for approval:</p>
<p>%s &lt;%s&gt;</p>
</body></html>`, siteName, displayName, email)
}

// buildLink joins the public base URL, a path, and query parameters.
func buildLink(baseURL, path string, params url.Values) string {
	return baseURL + path + "?" + params.Encode()
}
