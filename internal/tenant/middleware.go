// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package tenant

import (
	"net"
	"net/http"
	"strings"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/respond"
)

// ResolveSite binds the request Host header to a tenant [Site].
//
// # Flow
//  1. Strip an optional port from the Host header.
//  2. Resolve the hostname via the [SiteRepository].
//  3. Unknown hosts are rejected with 404 before any account route runs.
//  4. Inject the [*Site] into the request context.
func ResolveSite(repository SiteRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			host := request.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			host = strings.ToLower(host)

			site, err := repository.FindByHost(request.Context(), host)
			if err != nil {
				if apperr.IsAppError(err) {
					respond.Error(writer, request, err)
					return
				}
				respond.Error(writer, request, apperr.Internal(err))
				return
			}

			ctx := WithSite(request.Context(), site)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireSite extracts the resolved site or fails the request.
//
// Handlers mounted behind [ResolveSite] can assume a site is always present;
// this helper keeps that assumption explicit at the call site.
func RequireSite(request *http.Request) (*Site, error) {
	site := FromContext(request.Context())
	if site == nil {
		return nil, apperr.NotFound("Site")
	}
	return site, nil
}
