package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireSessionOrProxy(t *testing.T) {
	const secret = "shh-secret"
	v := NewSessionVerifier(secret, "api-key-1")
	guard := RequireSessionOrProxy(v, secret)
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := v.SignSessionToken("demo.myshopify.com", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig := signProxyQuery(secret, "shop=demo.myshopify.com")

	cases := []struct {
		name   string
		url    string
		bearer string
		want   int
	}{
		{"session token only", "/api/survey?shop=demo.myshopify.com", token, http.StatusNoContent},
		{"proxy signature only", "/api/survey?shop=demo.myshopify.com&signature=" + sig, "", http.StatusNoContent},
		{"neither", "/api/survey?shop=demo.myshopify.com", "", http.StatusUnauthorized},
		{"bad bearer token", "/api/survey?shop=demo.myshopify.com", "not.a.jwt", http.StatusUnauthorized},
		// a bearer header commits the request to session auth, a valid
		// signature alongside it does not rescue a bad token
		{"bad token with valid signature", "/api/survey?shop=demo.myshopify.com&signature=" + sig, "not.a.jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status %d, want %d", rr.Code, tc.want)
			}
		})
	}
}
