package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type authCtxKey int

const sessionKey authCtxKey = 3

// SessionClaims mirrors a Shopify App Bridge session token: dest carries the
// shop origin, aud must equal the app's API key.
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// Shop strips the scheme from the dest claim, yielding the myshopify domain.
func (c *SessionClaims) Shop() string {
	return strings.TrimPrefix(strings.TrimPrefix(c.Dest, "https://"), "http://")
}

// SessionVerifier validates App Bridge session tokens on builder requests.
// Tokens are stateless; there is no session storage or OAuth handling here.
type SessionVerifier struct {
	secret []byte
	apiKey string
}

func NewSessionVerifier(secret, apiKey string) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret), apiKey: apiKey}
}

// SignSessionToken issues a token the way Shopify would; used by tests and
// local development tooling.
func (v *SessionVerifier) SignSessionToken(shop string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{v.apiKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *SessionVerifier) parse(tok string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.apiKey != "" {
		opts = append(opts, jwt.WithAudience(v.apiKey))
	}
	t, err := jwt.ParseWithClaims(tok, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*SessionClaims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid session token")
}

// RequireSessionToken rejects requests without a valid bearer session token
// and attaches the claims to the request context.
func (v *SessionVerifier) RequireSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		claims, err := v.parse(tok)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ShopFromContext returns the shop domain of the verified session, if any.
func ShopFromContext(ctx context.Context) (string, bool) {
	if c, ok := ctx.Value(sessionKey).(*SessionClaims); ok {
		return c.Shop(), true
	}
	return "", false
}
