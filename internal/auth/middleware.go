package auth

import (
	"net/http"
	"strings"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/userctx"
	"go.uber.org/zap"
)

// Middleware: кладёт пользователя из Bearer токена в контекст запроса
type Middleware struct {
	config  *config.Config
	service *Service
	logger  *zap.SugaredLogger
}

func NewMiddleware(cfg *config.Config, service *Service, logger *zap.SugaredLogger) *Middleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Middleware{
		config:  cfg,
		service: service,
		logger:  logger,
	}
}

// Handler is a no-op in AUTH_MODE=none. Otherwise a present token must be
// valid, and with AUTH_REQUIRED a missing token is rejected too.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m.config.AuthMode == config.AuthModeNone {
		return next
	}
	required := m.config.AuthRequired

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticateHeader(header)
		if err != nil {
			m.logger.Debugw("auth rejected", "method", r.Method, "path", r.URL.Path, "error", err)
			message := "Invalid or expired token"
			if header == "" {
				message = "Unauthorized"
			}
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", message)
			return
		}

		m.logger.Debugw("auth token accepted", "sub", userID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", ErrInvalidToken
	}
	return m.service.VerifyJWT(token)
}

// isPublic reports routes that skip authentication: health, token issuing,
// and meal image downloads, which <img> tags request without headers.
func isPublic(r *http.Request) bool {
	path := r.URL.Path
	if path == "/healthz" || strings.HasPrefix(path, "/v1/auth/") {
		return true
	}
	if r.Method != http.MethodGet {
		return false
	}
	// /v1/meals/{id}/images/{imageId}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return len(parts) == 5 && parts[0] == "v1" && parts[1] == "meals" && parts[3] == "images" && parts[2] != "" && parts[4] != ""
}
