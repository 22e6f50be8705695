package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// Liveness probes never carry credentials.
var publicPaths = map[string]bool{"/isalive": true}

// BearerAuthMiddleware rejects requests without one of apiKeys as a bearer
// token. Blank keys are ignored; with no keys left the middleware is a no-op.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if reason := checkBearer(keys, r.Header.Get("Authorization")); reason != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="docquery"`)
				writeResponse(w, domain.Failure(domain.KindUnauthorized, reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns why header is rejected, or "" when it carries a known key.
// The scheme is matched case-insensitively (RFC 6750).
func checkBearer(keys [][]byte, header string) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}

	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(k, []byte(strings.TrimSpace(token)))
	}
	if match != 1 {
		return "invalid api key"
	}
	return ""
}
