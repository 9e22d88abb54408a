package httpserver

import (
	"net/http"
	"slices"
	"strings"

	"github.com/fdg312/meal-hub/internal/config"
)

// Methods used by the meal and diet routes (PATCH meals, PUT diets and
// image slots).
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

const (
	corsAllowHeaders = "Authorization,Content-Type"
	// Browsers need these to name export downloads and back off on 429.
	corsExposeHeaders = "Content-Disposition,Retry-After"
	corsMaxAge        = "600"
)

// CORSMiddleware adds CORS headers for the configured origins and answers
// preflight requests itself.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cfg.CORSAllowedOrigins))
	for _, o := range cfg.CORSAllowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	methods := strings.Join(corsMethods, ",")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			if cfg.CORSAllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method != http.MethodOptions || origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Preflight. Unknown origins and methods get an empty 204 and the
		// browser blocks the real request.
		requested := r.Header.Get("Access-Control-Request-Method")
		if allowed[origin] && (requested == "" || slices.Contains(corsMethods, requested)) {
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
