package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowHeaders = "Authorization, Content-Type, X-Request-ID"
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsMaxAge       = "600"
	adminPathPrefix  = "/admin"
)

// originPolicy decides which browser origins may call the API. A "*" entry
// opens the public lead routes to any landing page. Admin routes only answer
// listed origins, and only listed origins receive credentials.
type originPolicy struct {
	listed   map[string]struct{}
	wildcard bool
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{listed: map[string]struct{}{}}
	for _, raw := range origins {
		raw = strings.TrimSpace(raw)
		switch raw {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.listed[normalizeOrigin(raw)] = struct{}{}
		}
	}
	return p
}

// decide reports whether origin may read responses for path and whether it
// may send cookies.
func (p originPolicy) decide(origin, path string) (allowed, credentials bool) {
	if origin == "" {
		return false, false
	}
	if _, ok := p.listed[normalizeOrigin(origin)]; ok {
		return true, true
	}
	if p.wildcard && !strings.HasPrefix(path, adminPathPrefix) {
		return true, false
	}
	return false, false
}

// normalizeOrigin lowercases scheme and host and drops a default port and
// trailing slash, so "HTTPS://Firm.example:443/" matches "https://firm.example".
func normalizeOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(origin)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + port
}

// CORS applies the origin policy for the intake form and the admin dashboard.
// Preflight requests are answered without reaching the handler.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			allowed, credentials := policy.decide(origin, r.URL.Path)
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				if credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
