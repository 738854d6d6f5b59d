package shield

import "net/http"

// MaxBody returns middleware that caps the request body at maxBytes using
// http.MaxBytesReader. The limit fires on read, before any handler-side
// resources (workspaces, files) are allocated for the request; an
// oversized body surfaces as http.MaxBytesError.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
