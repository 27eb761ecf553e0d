// Package middleware holds the cross-cutting HTTP layers: request path
// normalization and conditional-request handling.
package middleware

import (
	"net/http"
	"strings"
)

// NormalizePath canonicalizes request paths before routing: duplicate
// slashes collapse, and the legacy "/emby" prefix Emby-era clients
// still send is stripped.
func NormalizePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		for strings.Contains(p, "//") {
			p = strings.ReplaceAll(p, "//", "/")
		}
		if p == "/emby" {
			p = "/"
		} else if rest, ok := strings.CutPrefix(p, "/emby/"); ok {
			p = "/" + rest
		}
		if p != r.URL.Path {
			r = r.Clone(r.Context())
			r.URL.Path = p
		}
		next.ServeHTTP(w, r)
	})
}
