package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// VerifyProxySignature checks the signature Shopify appends to app-proxy
// requests: hex HMAC-SHA256 over the remaining query parameters rendered as
// "k=v1,v2" pairs, sorted by key and concatenated without a separator.
func VerifyProxySignature(secret string, query url.Values) bool {
	signature := query.Get("signature")
	if signature == "" {
		return false
	}
	pairs := make([]string, 0, len(query))
	for k, vs := range query {
		if k == "signature" {
			continue
		}
		pairs = append(pairs, k+"="+strings.Join(vs, ","))
	}
	sort.Strings(pairs)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "")))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// RequireProxySignature guards storefront routes reached through the Shopify
// app proxy.
func RequireProxySignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !VerifyProxySignature(secret, r.URL.Query()) {
				http.Error(w, "invalid proxy signature", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
