// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/dberr"
	"github.com/danhque/veranda/pkg/pagination"
	"github.com/danhque/veranda/pkg/uuid"
)

// # User Repository

// userColumns is the shared SELECT list for users.account rows.
const userColumns = `
	id, siteid, username, email, passwordhash, displayname, firstname, lastname,
	phonenumber, role, emailconfirmed, approved, twofactorenabled,
	failedattempts, lockoutuntil, lastloginat, createdat, updatedat`

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// scanUser hydrates a User from a row matching userColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.SiteID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.FirstName,
		&user.LastName,
		&user.PhoneNumber,
		&user.Role,
		&user.EmailConfirmed,
		&user.Approved,
		&user.TwoFactorEnabled,
		&user.FailedAttempts,
		&user.LockoutUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account and policy state, ensuring timestamps are
initialized if not provided.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, siteid, username, email, passwordhash, displayname, firstname, lastname,
			phonenumber, role, emailconfirmed, approved, twofactorenabled,
			failedattempts, lockoutuntil, lastloginat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.SiteID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Role,
		user.EmailConfirmed,
		user.Approved,
		user.TwoFactorEnabled,
		user.FailedAttempts,
		user.LockoutUntil,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Account", "postgres_user_repo_create_failed")
	}

	return nil
}

/*
FindByID retrieves a site's user record by primary key.

Parameters:
  - context: context.Context
  - siteID: string
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, siteID string, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE siteid = $1 AND id = $2 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, siteID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves a site's user record by email address.

Description: Performs a case-insensitive lookup on the account table,
filtering out soft-deleted users.

Parameters:
  - context: context.Context
  - siteID: string
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, siteID string, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE siteid = $1 AND lower(email) = lower($2) AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, siteID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this email")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
FindByUsername retrieves a site's user record by username.

Description: Case-insensitive lookup used for authentication and for the
username availability check.

Parameters:
  - context: context.Context
  - siteID: string
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, siteID string, username string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE siteid = $1 AND lower(username) = lower($2) AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, siteID, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this username")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
Update persists changes to a user's mutable profile and policy fields.

Description: Synchronizes the in-memory user state with the database,
refreshing the updatedat timestamp.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET username = $2, email = $3, displayname = $4, firstname = $5,
		    lastname = $6, phonenumber = $7, role = $8, emailconfirmed = $9,
		    approved = $10, twofactorenabled = $11, updatedat = $12
		WHERE id = $1 AND deletedat IS NULL`

	user.UpdatedAt = time.Now()

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Role,
		user.EmailConfirmed,
		user.Approved,
		user.TwoFactorEnabled,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	return nil
}

/*
UpdatePassword replaces only the password hash for a user.

Parameters:
  - context: context.Context
  - userID: string
  - passwordHash: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID string, passwordHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
MarkEmailConfirmed flips the email confirmation flag for a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) MarkEmailConfirmed(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET emailconfirmed = TRUE, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_email_confirmed_failed: %w", err)
	}

	return nil
}

/*
SetApproved flips the administrative approval flag for a user.

Parameters:
  - context: context.Context
  - userID: string
  - approved: bool

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) SetApproved(context context.Context, userID string, approved bool) error {
	const query = `
		UPDATE users.account
		SET approved = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, approved, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_approved_failed: %w", err)
	}

	return nil
}

/*
RecordFailedAttempt writes the lockout counters after a failed credential check.

Parameters:
  - context: context.Context
  - userID: string
  - failedAttempts: int
  - lockoutUntil: *time.Time (nil clears any lockout)

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) RecordFailedAttempt(context context.Context, userID string, failedAttempts int, lockoutUntil *time.Time) error {
	const query = `
		UPDATE users.account
		SET failedattempts = $2, lockoutuntil = $3, updatedat = $4
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, failedAttempts, lockoutUntil, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_record_failed_attempt_failed: %w", err)
	}

	return nil
}

/*
RecordLoginSuccess clears the lockout counters and stamps the last login time.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) RecordLoginSuccess(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET failedattempts = 0, lockoutuntil = NULL, lastloginat = $2, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_record_login_success_failed: %w", err)
	}

	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface using pgx.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a newly established refresh session.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Persistence failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (
			id, userid, tokenhash, useragent, ipaddress, ispersistent, expiresat, isrevoked, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.IsPersistent,
		session.ExpiresAt,
		session.IsRevoked,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenHash retrieves the active session matching a hashed refresh token.

Description: Revoked and expired sessions are excluded at the query level, so
a hit always represents a usable session.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, userid, tokenhash, useragent, ipaddress, ispersistent, expiresat, isrevoked, createdat
		FROM users.session
		WHERE tokenhash = $1 AND isrevoked = FALSE AND expiresat > NOW()`

	session := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.IsPersistent,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session is invalid or expired")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_by_token_failed: %w", err)
	}

	return session, nil
}

/*
Revoke marks a single session as revoked.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	const query = `UPDATE users.session SET isrevoked = TRUE WHERE id = $1`

	_, err := repository.pool.Exec(context, query, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}

	return nil
}

/*
RevokeAll revokes every active session belonging to a user.

Description: Invoked after a password reset so stolen refresh tokens stop
working immediately.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	const query = `UPDATE users.session SET isrevoked = TRUE WHERE userid = $1 AND isrevoked = FALSE`

	_, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err)
	}

	return nil
}

/*
DeleteExpired removes sessions past their expiry.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of rows removed
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	const query = `DELETE FROM users.session WHERE expiresat <= NOW()`

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

// # External Login Repository

// PostgresExternalLoginRepository implements ExternalLoginRepository using pgx.
type PostgresExternalLoginRepository struct {
	pool *pgxpool.Pool
}

// NewExternalLoginRepository creates a new PostgreSQL implementation of the ExternalLoginRepository.
func NewExternalLoginRepository(pool *pgxpool.Pool) *PostgresExternalLoginRepository {
	return &PostgresExternalLoginRepository{pool: pool}
}

/*
FindByProviderKey retrieves the binding for a provider identity on a site.

Parameters:
  - context: context.Context
  - siteID: string
  - provider: string
  - providerKey: string

Returns:
  - *ExternalLogin: Hydrated binding
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresExternalLoginRepository) FindByProviderKey(context context.Context, siteID string, provider string, providerKey string) (*ExternalLogin, error) {
	const query = `
		SELECT siteid, provider, providerkey, userid, email, createdat
		FROM users.externallogin
		WHERE siteid = $1 AND provider = $2 AND providerkey = $3`

	login := &ExternalLogin{}
	err := repository.pool.QueryRow(context, query, siteID, provider, providerKey).Scan(
		&login.SiteID,
		&login.Provider,
		&login.ProviderKey,
		&login.UserID,
		&login.Email,
		&login.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("External login not found")
		}
		return nil, fmt.Errorf("postgres_external_login_repo_find_failed: %w", err)
	}

	return login, nil
}

/*
Create persists a new provider binding.

Parameters:
  - context: context.Context
  - login: *ExternalLogin

Returns:
  - error: Constraint violations or connectivity errors
*/
func (repository *PostgresExternalLoginRepository) Create(context context.Context, login *ExternalLogin) error {
	const query = `
		INSERT INTO users.externallogin (siteid, provider, providerkey, userid, email, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if login.CreatedAt.IsZero() {
		login.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		login.SiteID,
		login.Provider,
		login.ProviderKey,
		login.UserID,
		login.Email,
		login.CreatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "External login", "postgres_external_login_repo_create_failed")
	}

	return nil
}

/*
ListForUser returns every binding attached to a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []ExternalLogin: Bindings, possibly empty
  - error: Database retrieval failures
*/
func (repository *PostgresExternalLoginRepository) ListForUser(context context.Context, userID string) ([]ExternalLogin, error) {
	const query = `
		SELECT siteid, provider, providerkey, userid, email, createdat
		FROM users.externallogin
		WHERE userid = $1
		ORDER BY createdat`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_external_login_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var logins []ExternalLogin
	for rows.Next() {
		var login ExternalLogin
		if err := rows.Scan(
			&login.SiteID,
			&login.Provider,
			&login.ProviderKey,
			&login.UserID,
			&login.Email,
			&login.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_external_login_repo_scan_failed: %w", err)
		}
		logins = append(logins, login)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_external_login_repo_rows_failed: %w", err)
	}

	return logins, nil
}

// # Login IP Repository

// PostgresLoginIPRepository implements LoginIPRepository using pgx.
type PostgresLoginIPRepository struct {
	pool *pgxpool.Pool
}

// NewLoginIPRepository creates a new PostgreSQL implementation of the LoginIPRepository.
func NewLoginIPRepository(pool *pgxpool.Pool) *PostgresLoginIPRepository {
	return &PostgresLoginIPRepository{pool: pool}
}

/*
Record upserts a (user, address) audit row.

Description: First sight of an address inserts a row; repeat sign-ins bump
the counter and last-seen stamp.

Parameters:
  - context: context.Context
  - userID: string
  - ipAddress: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresLoginIPRepository) Record(context context.Context, userID string, ipAddress string) error {
	const query = `
		INSERT INTO users.loginip (id, userid, ipaddress, logincount, firstseenat, lastseenat)
		VALUES ($1, $2, $3, 1, $4, $4)
		ON CONFLICT (userid, ipaddress)
		DO UPDATE SET logincount = users.loginip.logincount + 1, lastseenat = $4`

	_, err := repository.pool.Exec(context, query, uuid.New(), userID, ipAddress, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_login_ip_repo_record_failed: %w", err)
	}

	return nil
}

/*
ListForUser returns a page of the user's sign-in addresses, most recent first.

Parameters:
  - context: context.Context
  - userID: string
  - params: pagination.Params

Returns:
  - []LoginIP: Page of rows
  - int64: Total row count for the user
  - error: Database retrieval failures
*/
func (repository *PostgresLoginIPRepository) ListForUser(context context.Context, userID string, params pagination.Params) ([]LoginIP, int64, error) {
	const countQuery = `SELECT COUNT(*) FROM users.loginip WHERE userid = $1`

	var total int64
	if err := repository.pool.QueryRow(context, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_login_ip_repo_count_failed: %w", err)
	}

	const query = `
		SELECT id, userid, ipaddress, logincount, firstseenat, lastseenat
		FROM users.loginip
		WHERE userid = $1
		ORDER BY lastseenat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, query, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_login_ip_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var entries []LoginIP
	for rows.Next() {
		var entry LoginIP
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.IPAddress,
			&entry.LoginCount,
			&entry.FirstSeen,
			&entry.LastSeen,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_login_ip_repo_scan_failed: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_login_ip_repo_rows_failed: %w", err)
	}

	return entries, total, nil
}
