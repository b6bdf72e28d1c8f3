// CLAUDE:SUMMARY HTTP middleware for the tabview API: security headers, HEAD handling, JSON body limit, per-IP rate limiting.
// Package shield provides the HTTP middleware in front of the tabview API.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack() {
//	    r.Use(mw)
//	}
//	r.Use(shield.NewRateLimiter(shield.RateLimitConfig{MaxRequests: 60, Window: time.Minute}).Middleware)
package shield

import "net/http"

// DefaultAPIBodyLimit bounds JSON request bodies.
const DefaultAPIBodyLimit = 64 << 10

// DefaultAPIStack returns the middleware every API router uses, outermost
// first: HeadToGet → SecurityHeaders → MaxBody.
func DefaultAPIStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(DefaultAPIBodyLimit),
	}
}

// HeadToGet serves HEAD through the GET routes. net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
