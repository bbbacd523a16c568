package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminSessionMissingKey(t *testing.T) {
	mw := AdminSession(nil)
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	rec := httptest.NewRecorder()

	var called bool
	mw(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if called {
		t.Fatalf("handler must not run without a key")
	}
}

func TestAdminSessionMissingToken(t *testing.T) {
	mw := AdminSession(AdminSigningKey("secret", "pw"))
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	rec := httptest.NewRecorder()

	var called bool
	mw(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminSessionCookie(t *testing.T) {
	key := AdminSigningKey("secret", "pw")
	token, _, err := IssueAdminToken(key, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: token})
	rec := httptest.NewRecorder()

	called := false
	AdminSession(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok || claims.Subject != "admin" {
			t.Fatalf("expected admin claims in context, got %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run, status %d", rec.Code)
	}
}

func TestAdminSessionBearer(t *testing.T) {
	key := AdminSigningKey("secret", "pw")
	token, _, err := IssueAdminToken(key, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var called bool
	AdminSession(key)(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
}

func TestAdminSessionRotatedPasswordRejectsOldToken(t *testing.T) {
	token, _, err := IssueAdminToken(AdminSigningKey("secret", "old"), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var called bool
	AdminSession(AdminSigningKey("secret", "new"))(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected rejection after password rotation, got %d", rec.Code)
	}
}

func TestAdminSessionExpiredToken(t *testing.T) {
	key := AdminSigningKey("secret", "pw")
	token, _, err := IssueAdminToken(key, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var called bool
	AdminSession(key)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminSessionRejectsForeignSubject(t *testing.T) {
	key := AdminSigningKey("secret", "pw")
	claims := jwt.RegisteredClaims{
		Subject:   "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	var called bool
	AdminSession(key)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminSigningKeyEmptyPassword(t *testing.T) {
	if key := AdminSigningKey("secret", ""); key != nil {
		t.Fatalf("expected nil key for empty password")
	}
	if _, _, err := IssueAdminToken(nil, time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error issuing without a key")
	}
}
