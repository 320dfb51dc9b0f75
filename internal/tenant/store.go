// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package tenant

import "context"

// # Site Data Access

// SiteRepository defines the data access contract for tenant sites.
type SiteRepository interface {

	/*
		FindByHost resolves a request hostname to its owning site.

		Parameters:
		  - context: context.Context
		  - host: string (hostname without port)

		Returns:
		  - *Site: Hydrated entity
		  - error: apperr.NotFound when the host is unmapped
	*/
	FindByHost(context context.Context, host string) (*Site, error)

	/*
		FindByID returns the site with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Site: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Site, error)

	/*
		Create persists a brand-new site and its initial host mapping.

		Parameters:
		  - context: context.Context
		  - site: *Site
		  - host: string (first hostname to map)

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, site *Site, host string) error

	/*
		Update persists changes to the site's mutable policy fields.

		Parameters:
		  - context: context.Context
		  - site: *Site

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, site *Site) error

	/*
		AddHost maps an additional hostname to an existing site.

		Parameters:
		  - context: context.Context
		  - siteID: string
		  - host: string

		Returns:
		  - error: Persistence failures
	*/
	AddHost(context context.Context, siteID, host string) error
}
