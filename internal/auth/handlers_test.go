package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/userctx"
)

func testConfig(mode string, required bool) *config.Config {
	return &config.Config{
		AuthMode:      mode,
		AuthRequired:  required,
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "meal-hub-test",
		JWTTTLMinutes: 60,
	}
}

func TestHandleDevAuth(t *testing.T) {
	service := NewService(testConfig(config.AuthModeDev, false))
	handler := NewHandlers(service)

	t.Run("DefaultUser", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		var resp DevAuthResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("expected access_token not empty")
		}
		if resp.TokenType != "Bearer" {
			t.Errorf("expected token_type Bearer, got %q", resp.TokenType)
		}
		if resp.ExpiresIn != int64(time.Hour.Seconds()) {
			t.Errorf("expected expires_in 3600, got %d", resp.ExpiresIn)
		}
		if resp.UserID != "dev-user" {
			t.Errorf("expected dev-user, got %q", resp.UserID)
		}
	})

	t.Run("CustomUser", func(t *testing.T) {
		body, _ := json.Marshal(DevAuthRequest{UserID: "chef"})
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		var resp DevAuthResponse
		json.NewDecoder(w.Body).Decode(&resp)
		sub, err := service.VerifyJWT(resp.AccessToken)
		if err != nil || sub != "chef" {
			t.Fatalf("expected token for chef, got %q (%v)", sub, err)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestHandleDevAuthDisabled(t *testing.T) {
	handler := NewHandlers(NewService(testConfig(config.AuthModeNone, false)))

	req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
	w := httptest.NewRecorder()
	handler.HandleDevAuth(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestMiddlewareAuth(t *testing.T) {
	cfg := testConfig(config.AuthModeDev, true)
	service := NewService(cfg)
	middleware := NewMiddleware(cfg, service, nil)

	t.Run("ValidToken", func(t *testing.T) {
		token, err := service.generateJWTWithTTL("test_user_123", time.Hour)
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/meals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var calledNext bool
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledNext = true
			if userID := userctx.OwnerID(r.Context()); userID != "test_user_123" {
				t.Errorf("expected user id in context, got %q", userID)
			}
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !calledNext {
			t.Error("expected next handler to be called")
		}
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	for _, tc := range []struct {
		name   string
		header string
	}{
		{"MissingToken", ""},
		{"InvalidToken", "Bearer invalid_token"},
		{"WrongScheme", "Basic abc"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/meals", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("should not call next handler")
			}))
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
		})
	}

	t.Run("ImageDownloadWithoutToken", func(t *testing.T) {
		for _, tc := range []struct {
			method string
			path   string
			public bool
		}{
			{"GET", "/v1/meals/6f1c2d4e-0000-4000-8000-000000000001/images/7a1c2d4e-0000-4000-8000-000000000002", true},
			{"PUT", "/v1/meals/6f1c2d4e-0000-4000-8000-000000000001/images", false},
			{"GET", "/v1/meals/6f1c2d4e-0000-4000-8000-000000000001/images", false},
			{"GET", "/v1/meals/6f1c2d4e-0000-4000-8000-000000000001/card", false},
		} {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			var called bool
			middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(w, req)

			if called != tc.public {
				t.Errorf("%s %s: expected public=%v, got status %d", tc.method, tc.path, tc.public, w.Code)
			}
		}
	})

	t.Run("PublicPath", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		var called bool
		middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})).ServeHTTP(w, req)

		if !called {
			t.Fatal("expected /healthz passthrough")
		}
	})
}

func TestMiddlewareAuthModeNone(t *testing.T) {
	cfg := testConfig(config.AuthModeNone, false)
	middleware := NewMiddleware(cfg, NewService(cfg), nil)

	req := httptest.NewRequest("GET", "/v1/meals", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()

	var userID string
	middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = userctx.OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if userID != userctx.DefaultUserID {
		t.Fatalf("expected default user, got %q", userID)
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	cfg := testConfig(config.AuthModeDev, false)
	service := NewService(cfg)
	middleware := NewMiddleware(cfg, service, nil)

	t.Run("NoTokenPasses", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/meals", nil)
		w := httptest.NewRecorder()

		var called bool
		middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected passthrough with 200, got called=%v status=%d", called, w.Code)
		}
	})

	t.Run("InvalidTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/meals", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not call next handler")
		})).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("DevAuthPathAlwaysAccessible", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		var called bool
		middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected /v1/auth/dev passthrough, called=%v status=%d", called, w.Code)
		}
	})
}

func TestVerifyJWT(t *testing.T) {
	service := NewService(testConfig(config.AuthModeDev, false))

	token, err := service.generateJWTWithTTL("test_user_123", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := service.VerifyJWT(token)
	if err != nil || sub != "test_user_123" {
		t.Fatalf("expected test_user_123, got %q (%v)", sub, err)
	}

	expired, _ := service.generateJWTWithTTL("test_user_123", -time.Minute)
	if _, err := service.VerifyJWT(expired); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	otherIssuer := testConfig(config.AuthModeDev, false)
	otherIssuer.JWTIssuer = "someone-else"
	foreign, _ := NewService(otherIssuer).generateJWTWithTTL("test_user_123", time.Hour)
	if _, err := service.VerifyJWT(foreign); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}
