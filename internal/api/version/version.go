// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package version carries the date-stamped API version negotiated through
// the Devdock-Version header. Requests without the header get the latest
// version.
package version

import (
	"context"
	"net/http"
)

const (
	// Version20261018 is the initial API version.
	Version20261018 = "2026-10-18"
)

// LatestVersion is the version served when the client sends none.
const LatestVersion = Version20261018

// Header is the HTTP header used to request a version.
const Header = "Devdock-Version"

type contextKey string

const versionKey contextKey = "api-version"

// Supported reports whether v is a version this server can speak.
func Supported(v string) bool {
	return v == Version20261018
}

// FromContext returns the API version from the context, or LatestVersion.
func FromContext(ctx context.Context) string {
	v, ok := ctx.Value(versionKey).(string)
	if !ok || v == "" {
		return LatestVersion
	}
	return v
}

// WithContext returns a new context with the API version set.
func WithContext(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey, version)
}

// Middleware stores the requested version in the request context and echoes
// it back. Unknown versions are rejected with 400.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.Header.Get(Header)
		if v == "" {
			v = LatestVersion
		}
		if !Supported(v) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BAD_REQUEST","message":"unsupported API version"}}`))
			return
		}

		w.Header().Set(Header, v)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), v)))
	})
}
