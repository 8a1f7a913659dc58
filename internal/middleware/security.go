package middleware

import "net/http"

// SecureHeaders adds standard security headers. The admin UI is embedded in
// the Shopify admin iframe, so frame-ancestors replaces X-Frame-Options.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "frame-ancestors https://*.myshopify.com https://admin.shopify.com")
		next.ServeHTTP(w, r)
	})
}
