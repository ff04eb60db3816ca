package internal

import (
	"net/http"

	"github.com/rs/cors"
)

const (
	corsAllowHeaders = "Content-Type, Authorization, X-Requested-With"
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsMaxAge       = "86400"
)

// corsGate reflects the Origin header only for allow-listed origins and
// always advertises the accepted methods and headers. Every OPTIONS request
// ends here with an empty 200. An empty list reflects nothing.
func corsGate(allowedOrigins []string) func(http.Handler) http.Handler {
	var policy *cors.Cors
	if len(allowedOrigins) > 0 {
		// rs/cors reads an empty AllowedOrigins as "*"
		policy = cors.New(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowCredentials: true,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" && policy != nil && policy.OriginAllowed(r) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Max-Age", corsMaxAge)

			if r.Method == http.MethodOptions {
				h.Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
