// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package views_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhque/veranda/internal/views"
)

var engineDefaults = []string{
	"/Views/{1}/{0}",
	"/Views/Shared/{0}",
}

/*
TestExpander_Ordering verifies that tenant locations are prepended to the
defaults in section → shared → email-template order.
*/
func TestExpander_Ordering(t *testing.T) {
	expander := views.NewExpander()

	locations := expander.Expand("acme", "summer", engineDefaults)

	require.Len(t, locations, 5)
	assert.Equal(t, "/sitefiles/acme/themes/summer/{1}/{0}", locations[0])
	assert.Equal(t, "/sitefiles/acme/themes/summer/Shared/{0}", locations[1])
	assert.Equal(t, "/sitefiles/acme/themes/summer/EmailTemplates/{0}", locations[2])

	// defaults preserved, in order, after the tenant locations
	assert.Equal(t, engineDefaults[0], locations[3])
	assert.Equal(t, engineDefaults[1], locations[4])
}

/*
TestExpander_NoTenant verifies passthrough when alias or theme is missing.
*/
func TestExpander_NoTenant(t *testing.T) {
	expander := views.NewExpander()

	tests := []struct {
		name  string
		alias string
		theme string
	}{
		{"no_alias", "", "summer"},
		{"no_theme", "acme", ""},
		{"neither", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locations := expander.Expand(tt.alias, tt.theme, engineDefaults)
			assert.Equal(t, engineDefaults, locations)
		})
	}
}

/*
TestExpander_CachePerKey verifies that distinct tenants never share locations.
*/
func TestExpander_CachePerKey(t *testing.T) {
	expander := views.NewExpander()

	first := expander.Expand("acme", "summer", nil)
	second := expander.Expand("globex", "summer", nil)

	assert.Equal(t, "/sitefiles/acme/themes/summer/{1}/{0}", first[0])
	assert.Equal(t, "/sitefiles/globex/themes/summer/{1}/{0}", second[0])
}

/*
TestResolve verifies placeholder substitution for controller and view names.
*/
func TestResolve(t *testing.T) {
	resolved := views.Resolve("/sitefiles/acme/themes/summer/{1}/{0}", "Account", "Login")
	assert.Equal(t, "/sitefiles/acme/themes/summer/Account/Login", resolved)

	all := views.ResolveAll([]string{"/Views/{1}/{0}", "/Views/Shared/{0}"}, "Account", "Login")
	assert.Equal(t, []string{"/Views/Account/Login", "/Views/Shared/Login"}, all)
}
