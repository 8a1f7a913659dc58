package middleware

import (
	"net/http"
	"strings"
)

// RequireSessionOrProxy admits a request carrying either a valid App Bridge
// session token or a valid app-proxy signature. The survey read routes are
// reached both from the embedded builder UI (bearer token, no signature) and
// through the storefront proxy (signature, no token), so neither guard alone
// fits them.
func RequireSessionOrProxy(v *SessionVerifier, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				v.RequireSessionToken(next).ServeHTTP(w, r)
				return
			}
			if VerifyProxySignature(secret, r.URL.Query()) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}
