package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// User is what LoadBearerUser injects into r.Context() for the duration
// of one request. It is fetched fresh from the database on every request
// so profile updates take effect immediately.
type User struct {
	ID    string
	Name  string
	Email string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the request's user & "found?" flag.
func CurrentUser(r *http.Request) (*User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*User)
	return u, ok
}

// UserFetcher loads fresh user data for a verified token subject.
// Returning nil means the user no longer exists; the request proceeds
// unauthenticated.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *User
}

// TokenManager issues and verifies the bearer tokens that authenticate
// every API request.
type TokenManager struct {
	secret  []byte
	expiry  time.Duration
	fetcher UserFetcher
	log     *zap.Logger
}

// NewTokenManager builds a TokenManager from the configured signing
// secret and token lifetime.
func NewTokenManager(secret string, expiry time.Duration, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), expiry: expiry, log: logger}, nil
}

// SetUserFetcher installs the fetcher used by LoadBearerUser to resolve
// token subjects into fresh user records.
func (tm *TokenManager) SetUserFetcher(f UserFetcher) {
	tm.fetcher = f
}

// Issue signs a token identifying userID, valid for the configured expiry.
func (tm *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses a token string and returns the user ID it identifies.
func (tm *TokenManager) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}

// LoadBearerUser injects the user into context when the request carries a
// valid bearer token. It never rejects; RequireSignedIn does that, so
// public endpoints can share the middleware stack.
func (tm *TokenManager) LoadBearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := tm.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			tm.log.Debug("bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if tm.fetcher != nil {
			if u := tm.fetcher.FetchUser(r.Context(), userID); u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by
// LoadBearerUser). Missing or invalid credentials both land here as an
// absent user and yield a JSON 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTestUser injects a user directly into the request context,
// bypassing token verification. Test use only.
func WithTestUser(r *http.Request, u *User) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
