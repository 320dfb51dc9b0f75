// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

/*
Package views resolves per-tenant template lookup locations.

Sites can override any rendered template (pages, shared layouts, email
templates) by dropping files under their own /sitefiles/{alias}/themes/{theme}
tree. The Expander prepends the tenant-specific locations to the engine
defaults, so lookup falls through to the stock templates when a site has no
override.

The package is pure: it performs no I/O and no template parsing.
*/
package views

import (
	"fmt"
	"strings"
	"sync"

	"github.com/danhque/veranda/pkg/slice"
)

// Placeholder tokens inside a location pattern.
//
// {0} is replaced by the view name, {1} by the controller (section) name.
// The tokens mirror the historical pattern syntax so existing theme trees
// keep working unchanged.
const (
	tokenView       = "{0}"
	tokenController = "{1}"
)

// tenant-relative location patterns, in lookup priority order.
const (
	patternSection = "/sitefiles/%s/themes/%s/{1}/{0}"
	patternShared  = "/sitefiles/%s/themes/%s/Shared/{0}"
	patternEmail   = "/sitefiles/%s/themes/%s/EmailTemplates/{0}"
)

// Expander computes and caches view location lists per (alias, theme) pair.
//
// # Concurrency
//
// Safe for concurrent use; the expansion for a given key is computed once.
type Expander struct {
	mu    sync.RWMutex
	cache map[string][]string
}

// NewExpander constructs an empty [Expander].
func NewExpander() *Expander {
	return &Expander{cache: make(map[string][]string)}
}

// Expand returns the ordered template lookup locations for a tenant.
//
// # Ordering
//
//  1. /sitefiles/{alias}/themes/{theme}/{1}/{0}
//  2. /sitefiles/{alias}/themes/{theme}/Shared/{0}
//  3. /sitefiles/{alias}/themes/{theme}/EmailTemplates/{0}
//  4. the provided defaults, unchanged.
//
// When alias or theme is empty there is nothing to override and the defaults
// are returned as-is.
func (expander *Expander) Expand(alias, theme string, defaults []string) []string {
	if alias == "" || theme == "" {
		return defaults
	}

	key := alias + "|" + theme

	expander.mu.RLock()
	tenantLocations, found := expander.cache[key]
	expander.mu.RUnlock()

	if !found {
		tenantLocations = []string{
			fmt.Sprintf(patternSection, alias, theme),
			fmt.Sprintf(patternShared, alias, theme),
			fmt.Sprintf(patternEmail, alias, theme),
		}

		expander.mu.Lock()
		expander.cache[key] = tenantLocations
		expander.mu.Unlock()
	}

	locations := make([]string, 0, len(tenantLocations)+len(defaults))
	locations = append(locations, tenantLocations...)
	locations = append(locations, defaults...)
	return locations
}

// Resolve substitutes the controller and view names into a single pattern.
func Resolve(pattern, controller, view string) string {
	resolved := strings.ReplaceAll(pattern, tokenController, controller)
	return strings.ReplaceAll(resolved, tokenView, view)
}

// ResolveAll substitutes the controller and view names into every pattern,
// preserving order.
func ResolveAll(patterns []string, controller, view string) []string {
	return slice.Map(patterns, func(pattern string) string {
		return Resolve(pattern, controller, view)
	})
}
