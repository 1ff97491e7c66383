// internal/app/system/limits/limits.go
package limits

import "net/http"

// MaxJSONBody caps request bodies on the JSON API. The largest
// legitimate payloads (registration with a full profile, meeting
// creation) are a few KB; anything near this limit is abuse.
const MaxJSONBody = 256 << 10 // 256 KB

// Body is middleware that enforces MaxJSONBody on every request body.
// Reads past the limit fail, which surfaces as a decode error in the
// handler.
func Body(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
		}
		next.ServeHTTP(w, r)
	})
}
