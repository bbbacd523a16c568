package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/wolfman30/lawfirm-intake/internal/http/middleware"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// AdminSessionConfig configures admin login.
type AdminSessionConfig struct {
	Password     string
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

// AdminSessionHandler issues and clears the admin session cookie.
type AdminSessionHandler struct {
	password []byte
	key      []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
	logger   *logging.Logger
}

// NewAdminSessionHandler creates the login handler. An empty password
// disables login.
func NewAdminSessionHandler(cfg AdminSessionConfig, logger *logging.Logger) *AdminSessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminSessionHandler{
		password: []byte(cfg.Password),
		key:      middleware.AdminSigningKey(cfg.Secret, cfg.Password),
		ttl:      ttl,
		secure:   cfg.SecureCookie,
		now:      time.Now,
		logger:   logger,
	}
}

// SigningKey is the key the admin session middleware must verify with.
func (h *AdminSessionHandler) SigningKey() []byte {
	return h.key
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the admin password and sets the session cookie.
// POST /admin/session
func (h *AdminSessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if len(h.key) == 0 {
		jsonError(w, "admin login disabled", http.StatusServiceUnavailable)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), h.password) != 1 {
		h.logger.Warn("admin login rejected", "remote_ip", r.RemoteAddr)
		jsonError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	token, expires, err := h.issue()
	if err != nil {
		h.logger.Error("failed to issue admin session", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"expires_at": expires.UTC()})
}

// Logout clears the session cookie.
// DELETE /admin/session
func (h *AdminSessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminSessionHandler) issue() (string, time.Time, error) {
	return middleware.IssueAdminToken(h.key, h.ttl, h.now())
}
