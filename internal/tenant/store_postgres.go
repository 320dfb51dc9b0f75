// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/database/schema"
)

// PostgresSiteRepository implements the SiteRepository interface using pgx.
type PostgresSiteRepository struct {
	pool *pgxpool.Pool
}

// NewSiteRepository creates a new PostgreSQL implementation of the SiteRepository.
func NewSiteRepository(pool *pgxpool.Pool) *PostgresSiteRepository {
	return &PostgresSiteRepository{pool: pool}
}

// siteColumns builds the qualified SELECT column list for core.site.
func siteColumns(alias string) string {
	columns := schema.CoreSite.Columns()
	qualified := make([]string, len(columns))
	for i, column := range columns {
		qualified[i] = alias + "." + column
	}
	return strings.Join(qualified, ", ")
}

// scanSite hydrates a Site from a single row.
func scanSite(row pgx.Row) (*Site, error) {
	site := &Site{}
	var lockoutMinutes int
	var providers []string

	err := row.Scan(
		&site.ID,
		&site.AliasKey,
		&site.DisplayName,
		&site.Theme,
		&site.UseEmailForLogin,
		&site.AllowPersistentLogin,
		&site.DisableDbAuth,
		&site.RequireCaptchaOnLogin,
		&site.MaxInvalidPasswordAttempts,
		&lockoutMinutes,
		&site.AllowNewRegistration,
		&site.RequireConfirmedEmail,
		&site.RequireApprovalBeforeLogin,
		&site.RequireCaptchaOnRegistration,
		&site.RegistrationPreamble,
		&site.RegistrationAgreement,
		&site.AccountApprovalEmailCsv,
		&providers,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	site.LockoutDuration = time.Duration(lockoutMinutes) * time.Minute
	site.AllowedProviders = providers
	return site, nil
}

/*
FindByHost resolves a hostname (port already stripped) to its owning site.

Description: Joins the core.sitehost mapping table to core.site. Hostnames are
stored lowercase; the lookup normalizes the input the same way.

Parameters:
  - context: context.Context
  - host: string

Returns:
  - *Site: Hydrated tenant entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresSiteRepository) FindByHost(context context.Context, host string) (*Site, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s s
		JOIN %s h ON h.%s = s.%s
		WHERE h.%s = $1`,
		siteColumns("s"),
		schema.CoreSite.Table,
		schema.CoreSiteHost.Table, schema.CoreSiteHost.SiteID, schema.CoreSite.ID,
		schema.CoreSiteHost.Hostname,
	)

	site, err := scanSite(repository.pool.QueryRow(context, query, strings.ToLower(host)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Site")
		}
		return nil, fmt.Errorf("postgres_site_repo_find_by_host_failed: %w", err)
	}

	return site, nil
}

/*
FindByID retrieves a site by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Site: Hydrated tenant entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresSiteRepository) FindByID(context context.Context, id string) (*Site, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s s
		WHERE s.%s = $1`,
		siteColumns("s"), schema.CoreSite.Table, schema.CoreSite.ID,
	)

	site, err := scanSite(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Site")
		}
		return nil, fmt.Errorf("postgres_site_repo_find_by_id_failed: %w", err)
	}

	return site, nil
}

/*
Create persists a new site and its first host mapping atomically.

Parameters:
  - context: context.Context
  - site: *Site
  - host: string

Returns:
  - error: Constraint violations or connectivity errors
*/
func (repository *PostgresSiteRepository) Create(context context.Context, site *Site, host string) error {
	insertSite := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		schema.CoreSite.Table, strings.Join(schema.CoreSite.Columns(), ", "),
	)

	insertHost := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.CoreSiteHost.Table, schema.CoreSiteHost.Hostname, schema.CoreSiteHost.SiteID,
	)

	now := time.Now()
	if site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	site.UpdatedAt = now

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_site_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	_, err = transaction.Exec(context, insertSite,
		site.ID,
		site.AliasKey,
		site.DisplayName,
		site.Theme,
		site.UseEmailForLogin,
		site.AllowPersistentLogin,
		site.DisableDbAuth,
		site.RequireCaptchaOnLogin,
		site.MaxInvalidPasswordAttempts,
		int(site.LockoutDuration/time.Minute),
		site.AllowNewRegistration,
		site.RequireConfirmedEmail,
		site.RequireApprovalBeforeLogin,
		site.RequireCaptchaOnRegistration,
		site.RegistrationPreamble,
		site.RegistrationAgreement,
		site.AccountApprovalEmailCsv,
		site.AllowedProviders,
		site.CreatedAt,
		site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_site_repo_create_failed: %w", err)
	}

	if _, err := transaction.Exec(context, insertHost, strings.ToLower(host), site.ID); err != nil {
		return fmt.Errorf("postgres_site_repo_create_host_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_site_repo_commit_failed: %w", err)
	}

	return nil
}

/*
Update persists changes to the site's mutable policy fields.

Parameters:
  - context: context.Context
  - site: *Site

Returns:
  - error: Update failures
*/
func (repository *PostgresSiteRepository) Update(context context.Context, site *Site) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			%s = $2, %s = $3,
			%s = $4, %s = $5, %s = $6, %s = $7,
			%s = $8, %s = $9,
			%s = $10, %s = $11, %s = $12, %s = $13,
			%s = $14, %s = $15, %s = $16, %s = $17,
			%s = $18
		WHERE %s = $1`,
		schema.CoreSite.Table,
		schema.CoreSite.DisplayName, schema.CoreSite.Theme,
		schema.CoreSite.UseEmailForLogin, schema.CoreSite.AllowPersistentLogin, schema.CoreSite.DisableDbAuth, schema.CoreSite.CaptchaOnLogin,
		schema.CoreSite.MaxInvalidPasswordAttempts, schema.CoreSite.LockoutMinutes,
		schema.CoreSite.AllowNewRegistration, schema.CoreSite.RequireConfirmedEmail, schema.CoreSite.RequireApproval, schema.CoreSite.CaptchaOnRegistration,
		schema.CoreSite.RegistrationPreamble, schema.CoreSite.RegistrationAgreement, schema.CoreSite.ApprovalEmailCsv, schema.CoreSite.AllowedProviders,
		schema.CoreSite.UpdatedAt,
		schema.CoreSite.ID,
	)

	site.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		site.ID,
		site.DisplayName,
		site.Theme,
		site.UseEmailForLogin,
		site.AllowPersistentLogin,
		site.DisableDbAuth,
		site.RequireCaptchaOnLogin,
		site.MaxInvalidPasswordAttempts,
		int(site.LockoutDuration/time.Minute),
		site.AllowNewRegistration,
		site.RequireConfirmedEmail,
		site.RequireApprovalBeforeLogin,
		site.RequireCaptchaOnRegistration,
		site.RegistrationPreamble,
		site.RegistrationAgreement,
		site.AccountApprovalEmailCsv,
		site.AllowedProviders,
		site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_site_repo_update_failed: %w", err)
	}

	return nil
}

/*
AddHost maps an additional hostname to an existing site.

Parameters:
  - context: context.Context
  - siteID: string
  - host: string

Returns:
  - error: Constraint violations (duplicate hostname) or connectivity errors
*/
func (repository *PostgresSiteRepository) AddHost(context context.Context, siteID, host string) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.CoreSiteHost.Table, schema.CoreSiteHost.Hostname, schema.CoreSiteHost.SiteID,
	)

	_, err := repository.pool.Exec(context, query, strings.ToLower(host), siteID)
	if err != nil {
		return fmt.Errorf("postgres_site_repo_add_host_failed: %w", err)
	}

	return nil
}
