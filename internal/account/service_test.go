// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account_test

import (
	"context"
	"strings"
	"time"

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/tenant"
	"github.com/danhque/veranda/pkg/pagination"
)

// # In-Memory Repositories

type memUserRepository struct {
	users map[string]*account.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]*account.User)}
}

func (m *memUserRepository) FindByID(_ context.Context, siteID, id string) (*account.User, error) {
	user, ok := m.users[id]
	if !ok || user.SiteID != siteID {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

func (m *memUserRepository) FindByEmail(_ context.Context, siteID, email string) (*account.User, error) {
	for _, user := range m.users {
		if user.SiteID == siteID && strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (m *memUserRepository) FindByUsername(_ context.Context, siteID, username string) (*account.User, error) {
	for _, user := range m.users {
		if user.SiteID == siteID && strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User not found with this username")
}

func (m *memUserRepository) Create(_ context.Context, user *account.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepository) Update(_ context.Context, user *account.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	if user, ok := m.users[userID]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *memUserRepository) MarkEmailConfirmed(_ context.Context, userID string) error {
	if user, ok := m.users[userID]; ok {
		user.EmailConfirmed = true
	}
	return nil
}

func (m *memUserRepository) SetApproved(_ context.Context, userID string, approved bool) error {
	if user, ok := m.users[userID]; ok {
		user.Approved = approved
	}
	return nil
}

func (m *memUserRepository) RecordFailedAttempt(_ context.Context, userID string, failedAttempts int, lockoutUntil *time.Time) error {
	if user, ok := m.users[userID]; ok {
		user.FailedAttempts = failedAttempts
		user.LockoutUntil = lockoutUntil
	}
	return nil
}

func (m *memUserRepository) RecordLoginSuccess(_ context.Context, userID string) error {
	if user, ok := m.users[userID]; ok {
		now := time.Now()
		user.FailedAttempts = 0
		user.LockoutUntil = nil
		user.LastLoginAt = &now
	}
	return nil
}

type memSessionRepository struct {
	sessions map[string]*account.Session
}

func newMemSessionRepository() *memSessionRepository {
	return &memSessionRepository{sessions: make(map[string]*account.Session)}
}

func (m *memSessionRepository) Create(_ context.Context, session *account.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*account.Session, error) {
	for _, session := range m.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(time.Now()) {
			return session, nil
		}
	}
	return nil, apperr.NotFound("Session is invalid or expired")
}

func (m *memSessionRepository) Revoke(_ context.Context, sessionID string) error {
	if session, ok := m.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (m *memSessionRepository) RevokeAll(_ context.Context, userID string) error {
	for _, session := range m.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (m *memSessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	var removed int64
	for id, session := range m.sessions {
		if session.ExpiresAt.Before(time.Now()) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memSessionRepository) activeCount(userID string) int {
	count := 0
	for _, session := range m.sessions {
		if session.UserID == userID && !session.IsRevoked {
			count++
		}
	}
	return count
}

type memExternalLoginRepository struct {
	bindings map[string]*account.ExternalLogin
}

func newMemExternalLoginRepository() *memExternalLoginRepository {
	return &memExternalLoginRepository{bindings: make(map[string]*account.ExternalLogin)}
}

func bindingKey(siteID, provider, providerKey string) string {
	return siteID + "|" + provider + "|" + providerKey
}

func (m *memExternalLoginRepository) FindByProviderKey(_ context.Context, siteID, provider, providerKey string) (*account.ExternalLogin, error) {
	if binding, ok := m.bindings[bindingKey(siteID, provider, providerKey)]; ok {
		return binding, nil
	}
	return nil, apperr.NotFound("External login not found")
}

func (m *memExternalLoginRepository) Create(_ context.Context, login *account.ExternalLogin) error {
	m.bindings[bindingKey(login.SiteID, login.Provider, login.ProviderKey)] = login
	return nil
}

func (m *memExternalLoginRepository) ListForUser(_ context.Context, userID string) ([]account.ExternalLogin, error) {
	var logins []account.ExternalLogin
	for _, binding := range m.bindings {
		if binding.UserID == userID {
			logins = append(logins, *binding)
		}
	}
	return logins, nil
}

type memLoginIPRepository struct {
	entries []account.LoginIP
}

func (m *memLoginIPRepository) Record(_ context.Context, userID, ipAddress string) error {
	m.entries = append(m.entries, account.LoginIP{UserID: userID, IPAddress: ipAddress})
	return nil
}

func (m *memLoginIPRepository) ListForUser(_ context.Context, userID string, params pagination.Params) ([]account.LoginIP, int64, error) {
	var matched []account.LoginIP
	for _, entry := range m.entries {
		if entry.UserID == userID {
			matched = append(matched, entry)
		}
	}
	return matched, int64(len(matched)), nil
}

// memTokenStore backs the confirm and reset token repositories.
type memTokenStore struct {
	tokens map[string]string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]string)}
}

func (m *memTokenStore) Set(_ context.Context, token, userID string, _ time.Duration) error {
	m.tokens[token] = userID
	return nil
}

func (m *memTokenStore) Get(_ context.Context, token string) (string, error) {
	if userID, ok := m.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Token is invalid or expired")
}

func (m *memTokenStore) Delete(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

type memTwoFactorRepository struct {
	pending map[string]string
	codes   map[string]string
	trusted map[string]bool
}

func newMemTwoFactorRepository() *memTwoFactorRepository {
	return &memTwoFactorRepository{
		pending: make(map[string]string),
		codes:   make(map[string]string),
		trusted: make(map[string]bool),
	}
}

func (m *memTwoFactorRepository) SetPending(_ context.Context, token, userID string, _ time.Duration) error {
	m.pending[token] = userID
	return nil
}

func (m *memTwoFactorRepository) GetPending(_ context.Context, token string) (string, error) {
	if userID, ok := m.pending[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Sign-in request is invalid or expired")
}

func (m *memTwoFactorRepository) DeletePending(_ context.Context, token string) error {
	delete(m.pending, token)
	return nil
}

func (m *memTwoFactorRepository) SetCode(_ context.Context, userID, provider, code string, _ time.Duration) error {
	m.codes[userID+"|"+provider] = code
	return nil
}

func (m *memTwoFactorRepository) GetCode(_ context.Context, userID, provider string) (string, error) {
	if code, ok := m.codes[userID+"|"+provider]; ok {
		return code, nil
	}
	return "", apperr.NotFound("Security code is invalid or expired")
}

func (m *memTwoFactorRepository) DeleteCode(_ context.Context, userID, provider string) error {
	delete(m.codes, userID+"|"+provider)
	return nil
}

func (m *memTwoFactorRepository) AddTrust(_ context.Context, userID, tokenHash string, _ time.Duration) error {
	m.trusted[userID+"|"+tokenHash] = true
	return nil
}

func (m *memTwoFactorRepository) IsTrusted(_ context.Context, userID, tokenHash string) (bool, error) {
	return m.trusted[userID+"|"+tokenHash], nil
}

type memExternalProfileRepository struct {
	profiles map[string]*account.PendingExternal
}

func newMemExternalProfileRepository() *memExternalProfileRepository {
	return &memExternalProfileRepository{profiles: make(map[string]*account.PendingExternal)}
}

func (m *memExternalProfileRepository) Set(_ context.Context, token string, pending *account.PendingExternal, _ time.Duration) error {
	m.profiles[token] = pending
	return nil
}

func (m *memExternalProfileRepository) Get(_ context.Context, token string) (*account.PendingExternal, error) {
	if pending, ok := m.profiles[token]; ok {
		return pending, nil
	}
	return nil, apperr.NotFound("Sign-in request is invalid or expired")
}

func (m *memExternalProfileRepository) Delete(_ context.Context, token string) error {
	delete(m.profiles, token)
	return nil
}

// # Stub Collaborators

type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID, _, _, _ string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

type stubCaptcha struct {
	pass bool
}

func (c *stubCaptcha) Verify(_ context.Context, _, _ string) (bool, error) {
	return c.pass, nil
}

// recordingNotifier captures dispatched notifications for assertions.
type recordingNotifier struct {
	confirmations  []string // tokens
	resets         []string // tokens
	codes          []string // codes
	codeProviders  []string
	approvalsAsked int
}

func (n *recordingNotifier) ConfirmationRequested(_ *tenant.Site, _ *account.User, token string) {
	n.confirmations = append(n.confirmations, token)
}

func (n *recordingNotifier) PasswordResetRequested(_ *tenant.Site, _ *account.User, token string) {
	n.resets = append(n.resets, token)
}

func (n *recordingNotifier) SecurityCodeIssued(_ *tenant.Site, _ *account.User, provider, code string) {
	n.codes = append(n.codes, code)
	n.codeProviders = append(n.codeProviders, provider)
}

func (n *recordingNotifier) ApprovalRequested(_ *tenant.Site, _ *account.User) {
	n.approvalsAsked++
}

// stubProviderClient asserts a fixed identity for any exchanged code.
type stubProviderClient struct {
	profile account.ProviderProfile
}

func (c stubProviderClient) AuthorizeURL(state, redirectURI string) string {
	return "https://provider.example/authorize?state=" + state + "&redirect_uri=" + redirectURI
}

func (c stubProviderClient) Exchange(_ context.Context, _, _ string) (*account.ProviderProfile, error) {
	profile := c.profile
	return &profile, nil
}

// # Fixture

// testEnv bundles the service with its in-memory backends.
type testEnv struct {
	service      *account.Service
	users        *memUserRepository
	sessions     *memSessionRepository
	externals    *memExternalLoginRepository
	profiles     *memExternalProfileRepository
	loginIPs     *memLoginIPRepository
	confirmStore *memTokenStore
	resetStore   *memTokenStore
	twoFactor    *memTwoFactorRepository
	notifier     *recordingNotifier
	captcha      *stubCaptcha
}

func newTestEnv(providers map[string]account.ProviderClient) *testEnv {
	env := &testEnv{
		users:        newMemUserRepository(),
		sessions:     newMemSessionRepository(),
		externals:    newMemExternalLoginRepository(),
		profiles:     newMemExternalProfileRepository(),
		loginIPs:     &memLoginIPRepository{},
		confirmStore: newMemTokenStore(),
		resetStore:   newMemTokenStore(),
		twoFactor:    newMemTwoFactorRepository(),
		notifier:     &recordingNotifier{},
		captcha:      &stubCaptcha{pass: true},
	}

	env.service = account.NewService(
		env.users,
		env.sessions,
		env.externals,
		env.profiles,
		env.loginIPs,
		env.confirmStore,
		env.resetStore,
		env.twoFactor,
		stubTokenProvider{},
		env.captcha,
		env.notifier,
		providers,
	)

	return env
}

// testSite returns a permissive site; tests flip individual policies.
func testSite() *tenant.Site {
	return &tenant.Site{
		ID:                         "site-1",
		AliasKey:                   "acme",
		DisplayName:                "Acme",
		Theme:                      "default",
		UseEmailForLogin:           true,
		AllowPersistentLogin:       true,
		MaxInvalidPasswordAttempts: 3,
		LockoutDuration:            10 * time.Minute,
		AllowNewRegistration:       true,
	}
}

// seedUser creates a confirmed, approved member with the given password.
func (env *testEnv) seedUser(id, email, username, password string) *account.User {
	hash, err := sec.HashPassword(password)
	if err != nil {
		panic(err)
	}

	user := &account.User{
		ID:             id,
		SiteID:         "site-1",
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		DisplayName:    username,
		Role:           sec.RoleMember,
		EmailConfirmed: true,
		Approved:       true,
	}
	env.users.users[id] = user
	return user
}
