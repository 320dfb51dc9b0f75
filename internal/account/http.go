// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Account HTTP delivery layer.

It implements the gateway for the account lifecycle—from sign-in and
registration to two-factor verification, external providers, and password
recovery. Every endpoint operates against the site resolved from the
request host.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles JWT orchestration and refresh token cookie injection.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/constants"
	"github.com/danhque/veranda/internal/platform/ctxutil"
	"github.com/danhque/veranda/internal/platform/middleware"
	requestutil "github.com/danhque/veranda/internal/platform/request"
	"github.com/danhque/veranda/internal/platform/respond"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/platform/validate"
	"github.com/danhque/veranda/internal/tenant"
	"github.com/danhque/veranda/pkg/pagination"
)

// # Definitions & Constructors

// externalStateCookie round-trips the OAuth CSRF state through the client.
const externalStateCookie = "external_state"

// trustedClientCookie stores the "remember this browser" two-factor grant.
const trustedClientCookie = "trusted_client"

// Handler implements account-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the account lifecycle entry
// points (sign-in, registration, two-factor, recovery, external providers).
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with account-specific routes.
//
// # Endpoints
//   - POST /login                 : Authenticates and returns a JWT.
//   - POST /register              : Creates a new account.
//   - POST /two-factor/*          : Security code dispatch and verification.
//   - GET  /external/{provider}   : Starts the provider OAuth dance.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/two-factor/send-code", handler.sendCode)
	router.Post("/two-factor/verify-code", handler.verifyCode)
	router.Post("/register", handler.register)
	router.Post("/confirm-email", handler.confirmEmail)
	router.Post("/resend-confirmation", handler.resendConfirmation)
	router.Get("/username-available", handler.usernameAvailable)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)
	router.Get("/external/{provider}", handler.beginExternal)
	router.Get("/external/{provider}/callback", handler.externalCallback)
	router.Post("/external/confirm", handler.confirmExternal)
	router.Get("/access-denied", handler.accessDenied)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Get("/activity", handler.activity)
		r.Post("/external/bind", handler.bindExternal)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Login           string `json:"login"`
	Password        string `json:"password"`
	CaptchaResponse string `json:"captcha_response"`
	Remember        bool   `json:"remember"`
}

type sendCodeRequest struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
}

type verifyCodeRequest struct {
	Token          string `json:"token"`
	Provider       string `json:"provider"`
	Code           string `json:"code"`
	Remember       bool   `json:"remember"`
	RememberClient bool   `json:"remember_client"`
}

type registerRequest struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	DisplayName       string `json:"display_name"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	AgreementAccepted bool   `json:"agreement_accepted"`
	CaptchaResponse   string `json:"captcha_response"`
}

type confirmEmailRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type resendConfirmationRequest struct {
	Email string `json:"email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type confirmExternalRequest struct {
	PendingToken      string `json:"pending_token"`
	DisplayName       string `json:"display_name"`
	AgreementAccepted bool   `json:"agreement_accepted"`
}

type bindExternalRequest struct {
	PendingToken string `json:"pending_token"`
}

// # Sign-In Endpoints

/*
Login authenticates a user against the site's policy gates.

POST /api/v1/account/login

Description: Runs the full gate sequence and maps the closed outcome set to
transport. Success injects a refresh token cookie; a two-factor outcome
returns the pending token instead.

Request:
  - Body: loginRequest (Login, Password, CaptchaResponse, Remember)

Response:
  - 200: Session or two-factor challenge
  - 401: ErrUnauthorized: Uniform refusal for every gate and credential failure
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldLogin, input.Login)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.SignIn(request.Context(), site, SignInInput{
		Login:              input.Login,
		Password:           input.Password,
		CaptchaResponse:    input.CaptchaResponse,
		Remember:           input.Remember,
		UserAgent:          request.UserAgent(),
		IPAddress:          getClientIP(request),
		TrustedClientToken: trustedClientToken(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.writeSignInResult(writer, request, result)
}

// writeSignInResult maps a SignInResult onto the wire. Shared by password,
// two-factor, and external sign-in endpoints.
func (handler *Handler) writeSignInResult(writer http.ResponseWriter, request *http.Request, result *SignInResult) {
	switch result.Outcome {
	case OutcomeSuccess:
		setRefreshCookie(writer, result.Session)
		if result.TrustedClientToken != "" {
			setTrustedClientCookie(writer, result.TrustedClientToken)
		}
		respond.OK(writer, map[string]any{
			"outcome":        result.Outcome,
			FieldAccessToken: result.Session.AccessToken,
			FieldUser:        result.Session.User,
		})

	case OutcomeRequiresTwoFactor:
		respond.OK(writer, map[string]any{
			"outcome":          result.Outcome,
			"two_factor_token": result.TwoFactorToken,
			"providers":        result.TwoFactorProviders,
		})

	default:
		// Failed, LockedOut, NotAllowed: one indistinguishable refusal.
		respond.Error(writer, request, apperr.Unauthorized(result.Message))
	}
}

/*
Logout terminates the current user session.

POST /api/v1/account/logout

Description: Invalidates the refresh token (if present) and clears the
security cookies from the client.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)

	if err == nil && cookie != nil && cookie.Value != "" {
		_ = handler.accountService.SignOut(request.Context(), cookie.Value)
	}

	clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
Refresh issues a new access token using a valid refresh token.

POST /api/v1/account/refresh

Description: Rotates the session by validating the refresh token cookie
and issuing a fresh access token and an updated refresh token.

Response:
  - 200: RefreshResponse: New access token credentials
  - 401: ErrUnauthorized: Missing or invalid refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token in cookies"))
		return
	}

	session, err := handler.accountService.RefreshSession(
		request.Context(),
		site,
		cookie.Value,
		request.UserAgent(),
		getClientIP(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, session)
	respond.OK(writer, map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   AccessTokenTTL / time.Second,
	})
}

// # Two-Factor Endpoints

/*
SendCode dispatches a security code for a pending two-factor sign-in.

POST /api/v1/account/two-factor/send-code

Request:
  - Body: sendCodeRequest (Token, Provider)

Response:
  - 204: No Content: Code dispatched
  - 401: ErrUnauthorized: Pending token invalid or expired
  - 422: ErrUnprocessable: Provider not available for this account
*/
func (handler *Handler) sendCode(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input sendCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token)
	validator.Required(FieldProvider, input.Provider).
		OneOf(FieldProvider, input.Provider, TwoFactorProviderEmail, TwoFactorProviderPhone)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.SendCode(request.Context(), site, input.Token, input.Provider); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
VerifyCode checks a security code and completes the two-factor sign-in.

POST /api/v1/account/two-factor/verify-code

Request:
  - Body: verifyCodeRequest (Token, Provider, Code, Remember, RememberClient)

Response:
  - 200: Session: Access token and user profile
  - 401: ErrUnauthorized: Uniform refusal for bad tokens or codes
*/
func (handler *Handler) verifyCode(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token)
	validator.Required(FieldProvider, input.Provider)
	validator.Required(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.VerifyCode(request.Context(), site, VerifyCodeInput{
		PendingToken:   input.Token,
		Provider:       input.Provider,
		Code:           input.Code,
		Remember:       input.Remember,
		RememberClient: input.RememberClient,
		UserAgent:      request.UserAgent(),
		IPAddress:      getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.writeSignInResult(writer, request, result)
}

// # Registration Endpoints

/*
Register handles the creation of a new site member.

POST /api/v1/account/register

Description: Validates input, runs the site's registration gates, and ends
in one of the three registration terminals. A signed-in terminal also sets
the refresh cookie.

Request:
  - Body: registerRequest

Response:
  - 201: RegistrationResult: Status plus user (and session when signed in)
  - 403: ErrForbidden: Registration closed on this site
  - 409: ErrConflict: Username or Email already exists
  - 422: ErrUnprocessable: Captcha or agreement failure
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	// The username is optional; when present it still has to be sane.
	if input.Username != "" {
		validator.MinLen(FieldUsername, input.Username, 3)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.Register(request.Context(), site, RegisterInput{
		Username:          input.Username,
		Email:             input.Email,
		Password:          input.Password,
		DisplayName:       input.DisplayName,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		AgreementAccepted: input.AgreementAccepted,
		CaptchaResponse:   input.CaptchaResponse,
		UserAgent:         request.UserAgent(),
		IPAddress:         getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.writeRegistrationResult(writer, result)
}

// writeRegistrationResult maps a RegistrationResult onto the wire. Shared
// with external-login confirmation.
func (handler *Handler) writeRegistrationResult(writer http.ResponseWriter, result *RegistrationResult) {
	payload := map[string]any{
		"status":  result.Status,
		FieldUser: result.User,
	}

	if result.Status == StatusSignedIn {
		setRefreshCookie(writer, result.Session)
		payload[FieldAccessToken] = result.Session.AccessToken
	}

	respond.Created(writer, payload)
}

/*
ConfirmEmail redeems an email confirmation link.

POST /api/v1/account/confirm-email

Request:
  - Body: confirmEmailRequest (UserID, Token)

Response:
  - 200: Confirmation status, including whether approval is still pending
  - 404: ErrNotFound: Token invalid, expired, or bound to another user
*/
func (handler *Handler) confirmEmail(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input confirmEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUserID, input.UserID)
	validator.Required(FieldToken, input.Token)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	awaitingApproval, err := handler.accountService.ConfirmEmail(request.Context(), site, input.UserID, input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"confirmed":         true,
		"awaiting_approval": awaitingApproval,
	})
}

/*
ResendConfirmation issues a fresh confirmation link.

POST /api/v1/account/resend-confirmation

Description: Always returns 204 so the endpoint cannot be used to probe
for accounts.

Request:
  - Body: resendConfirmationRequest (Email)

Response:
  - 204: No Content
*/
func (handler *Handler) resendConfirmation(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input resendConfirmationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResendConfirmation(request.Context(), site, input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
UsernameAvailable reports whether a username can be used on the site.

GET /api/v1/account/username-available?userId={id}&userName={name}

Description: A name held by the requesting user themselves counts as
available, so profile edits that keep the current name pass validation.

Response:
  - 200: {"available": bool}
  - 400: ErrValidation: Missing userName parameter
*/
func (handler *Handler) usernameAvailable(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID := request.URL.Query().Get("userId")
	username := request.URL.Query().Get("userName")

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	available, err := handler.accountService.UsernameAvailable(request.Context(), site, userID, username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"available": available})
}

// # Recovery Endpoints

/*
ForgotPassword initiates the reset flow for an email address.

POST /api/v1/account/forgot-password

Description: Always returns 204 regardless of whether the address is known,
preventing account enumeration.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 204: No Content
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ForgotPassword(request.Context(), site, input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ResetPassword redeems a reset token and sets a new password.

POST /api/v1/account/reset-password

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 204: No Content: Password replaced, all sessions revoked
  - 404: ErrNotFound: Token invalid or expired
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token)
	validator.Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResetPassword(request.Context(), site, input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # External Provider Endpoints

/*
BeginExternal starts the OAuth dance for a provider.

GET /api/v1/account/external/{provider}

Description: Mints a CSRF state token, parks it in a short-lived cookie,
and redirects the user agent to the provider's authorization page.

Response:
  - 302: Redirect to the provider
  - 403: ErrForbidden: Provider not enabled on this site
*/
func (handler *Handler) beginExternal(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	provider := requestutil.Param(request, "provider")

	state, err := sec.GenerateSecureToken(ExternalPendingLength)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	authorizeURL, err := handler.accountService.BeginExternal(site, provider, state, externalRedirectURI(request, provider))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     externalStateCookie,
		Value:    state,
		Path:     constants.RefreshTokenCookiePath + "/external",
		MaxAge:   int((10 * time.Minute) / time.Second),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(writer, request, authorizeURL, http.StatusFound)
}

/*
ExternalCallback handles the provider's redirect back to us.

GET /api/v1/account/external/{provider}/callback?code=...&state=...

Description: Validates the CSRF state against the cookie, exchanges the
code, and either completes the sign-in (with the same outcome mapping as
password login) or returns a pending token for enrollment confirmation.

Response:
  - 200: Session, two-factor challenge, or confirmation request
  - 401: ErrUnauthorized: State mismatch or refusal outcome
*/
func (handler *Handler) externalCallback(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	provider := requestutil.Param(request, "provider")
	code := request.URL.Query().Get("code")
	state := request.URL.Query().Get("state")

	cookie, err := request.Cookie(externalStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		respond.Error(writer, request, apperr.Unauthorized("Sign-in request is invalid or expired"))
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCode, code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.CompleteExternal(
		request.Context(),
		site,
		provider,
		code,
		externalRedirectURI(request, provider),
		request.UserAgent(),
		getClientIP(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.NeedsConfirmation {
		respond.OK(writer, map[string]any{
			"needs_confirmation": true,
			"pending_token":      result.PendingToken,
			FieldProvider:        result.Provider,
			FieldEmail:           result.Profile.Email,
			FieldDisplayName:     result.Profile.Name,
		})
		return
	}

	handler.writeSignInResult(writer, request, result.SignIn)
}

/*
ConfirmExternal finishes enrollment for a pending external identity.

POST /api/v1/account/external/confirm

Request:
  - Body: confirmExternalRequest (PendingToken, DisplayName, AgreementAccepted)

Response:
  - 201: RegistrationResult: Status plus user (and session when signed in)
  - 401: ErrUnauthorized: Pending token invalid or expired
  - 409: ErrConflict: Email or username already taken
*/
func (handler *Handler) confirmExternal(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input confirmExternalRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.PendingToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.ConfirmExternal(request.Context(), site, ConfirmExternalInput{
		PendingToken:      input.PendingToken,
		DisplayName:       input.DisplayName,
		AgreementAccepted: input.AgreementAccepted,
		UserAgent:         request.UserAgent(),
		IPAddress:         getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.writeRegistrationResult(writer, result)
}

/*
BindExternal links a pending external identity to the signed-in account.

POST /api/v1/account/external/bind

Request:
  - Body: bindExternalRequest (PendingToken)

Response:
  - 204: No Content: Identity linked
  - 409: ErrConflict: Identity already linked to an account
*/
func (handler *Handler) bindExternal(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	var input bindExternalRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.PendingToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.BindExternal(request.Context(), site, claims.UserID, input.PendingToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Activity & Misc Endpoints

/*
Activity lists the signed-in user's sign-in address history.

GET /api/v1/account/activity?page={n}&limit={n}

Response:
  - 200: Paginated list of login IP audit rows
*/
func (handler *Handler) activity(writer http.ResponseWriter, request *http.Request) {
	site, err := tenant.RequireSite(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	params := pagination.FromRequest(request)

	entries, total, err := handler.accountService.RecentActivity(request.Context(), site, claims.UserID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, entries, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

/*
AccessDenied is the terminal endpoint for authorization failures.

GET /api/v1/account/access-denied

Response:
  - 403: ErrForbidden: Fixed refusal payload
*/
func (handler *Handler) accessDenied(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.Forbidden("You do not have permission to access this resource"))
}

// # Transport Helpers

// setRefreshCookie injects the refresh token cookie. Persistent sessions
// get an expiry; ordinary sessions ride a browser-session cookie.
func setRefreshCookie(writer http.ResponseWriter, session *LoginSession) {
	cookie := &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}

	if session.IsPersistent {
		cookie.Expires = session.RefreshTokenExpiresAt
	}

	http.SetCookie(writer, cookie)
}

// clearRefreshCookie removes the refresh token cookie from the client.
func clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// trustedClientToken extracts the "remember this browser" grant, if any.
func trustedClientToken(request *http.Request) string {
	cookie, err := request.Cookie(trustedClientCookie)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

// setTrustedClientCookie persists the two-factor trust grant on the client.
func setTrustedClientCookie(writer http.ResponseWriter, token string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     trustedClientCookie,
		Value:    token,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  time.Now().Add(TrustedClientTTL),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// externalRedirectURI rebuilds the callback URI the provider must return
// to. Host-derived so each tenant gets callbacks on its own domain.
func externalRedirectURI(request *http.Request, provider string) string {
	scheme := request.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if request.TLS == nil {
			scheme = "http"
		}
	}

	return scheme + "://" + request.Host + constants.RefreshTokenCookiePath + "/external/" + provider + "/callback"
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {

	ip := request.Header.Get(constants.HeaderXRealIP)
	if ip == "" {
		ip = request.Header.Get(constants.HeaderXForwardedFor)
	}

	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
