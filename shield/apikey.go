package shield

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is the header carrying the shared secret.
const APIKeyHeader = "X-Api-Key"

// APIKey returns middleware enforcing shared-secret authentication: every
// request must present APIKeyHeader with a value matching key. Comparison
// is constant-time. An empty key disables the check entirely (open
// endpoint). Paths listed in bypass (exact match or prefix ending in "/")
// skip authentication; health checks use this.
func APIKey(key string, bypass ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || bypassed(r.URL.Path, bypass) {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bypassed(path string, bypass []string) bool {
	for _, b := range bypass {
		if path == b {
			return true
		}
		if strings.HasSuffix(b, "/") && strings.HasPrefix(path, b) {
			return true
		}
	}
	return false
}
