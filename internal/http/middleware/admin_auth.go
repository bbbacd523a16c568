package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminSessionCookie is the cookie carrying the admin session token.
const AdminSessionCookie = "admin_session"

const adminSubject = "admin"

// AdminSigningKey derives the session signing key from the configured secret
// and the admin password, so rotating the password invalidates every session.
// An empty password yields a nil key, which disables admin access.
func AdminSigningKey(secret, password string) []byte {
	if password == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// IssueAdminToken signs a session token valid for ttl.
func IssueAdminToken(key []byte, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(key) == 0 {
		return "", time.Time{}, errors.New("middleware: admin signing key not configured")
	}
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// AdminSession enforces an HMAC-signed JWT for admin endpoints. The token is
// read from the admin_session cookie or an Authorization bearer header.
func AdminSession(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			tokenString := adminToken(r)
			if tokenString == "" {
				http.Error(w, "missing admin session", http.StatusUnauthorized)
				return
			}
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			}, jwt.WithSubject(adminSubject), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminToken(r *http.Request) string {
	if c, err := r.Cookie(AdminSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}
