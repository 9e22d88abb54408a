package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-hub/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                "local",
		Port:               8080,
		Blob:               config.BlobConfig{Mode: config.BlobModeLocal},
		UploadMaxMB:        10,
		UploadAllowedMime:  "image/jpeg,image/png,image/webp",
		MealImagesMaxSlots: 5,
		AuthMode:           config.AuthModeNone,
		JWTSecret:          "test-secret",
		JWTIssuer:          "meal-hub",
		JWTTTLMinutes:      60,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestNewRejectsZeroSlotsOutsideProduction(t *testing.T) {
	cfg := testConfig()
	cfg.MealImagesMaxSlots = 0

	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for MEAL_IMAGES_MAX_SLOTS=0 in local env")
	}

	cfg.Env = "production"
	srv, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("production should clamp slots, got %v", err)
	}
	srv.Close()
}

func TestRequiredAuthFlow(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeDev
	cfg.AuthRequired = true
	handler := newTestServer(t, cfg).Handler()

	// Protected route without token
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/meals", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// Dev token
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/dev", bytes.NewBufferString(`{"user_id":"alice"}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dev auth: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(w.Body).Decode(&tokenResp)
	if tokenResp.AccessToken == "" {
		t.Fatalf("empty access token: %s", w.Body.String())
	}
	bearer := "Bearer " + tokenResp.AccessToken

	req = httptest.NewRequest(http.MethodPost, "/v1/meals", bytes.NewBufferString(`{"name":"Oats","cuisines":"AMERICAN"}`))
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create meal: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var meal struct {
		OwnerUserID string `json:"ownerUserId"`
	}
	json.NewDecoder(w.Body).Decode(&meal)
	if meal.OwnerUserID != "alice" {
		t.Errorf("expected owner alice, got %q", meal.OwnerUserID)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/users/me/meals", nil)
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	var list struct {
		Meals []json.RawMessage `json:"meals"`
	}
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Meals) != 1 {
		t.Errorf("expected 1 meal for alice, got %d", len(list.Meals))
	}
}

func TestAuthNoneUsesDefaultUser(t *testing.T) {
	handler := newTestServer(t, testConfig()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/diets", bytes.NewBufferString(`{"name":"Plan"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var diet struct {
		OwnerUserID string `json:"ownerUserId"`
	}
	json.NewDecoder(w.Body).Decode(&diet)
	if diet.OwnerUserID != "default" {
		t.Errorf("expected default owner, got %q", diet.OwnerUserID)
	}
}

func TestImageUploadsHaveOwnBudget(t *testing.T) {
	cfg := testConfig()
	cfg.UploadRateLimitPerMin = 1
	cfg.UploadRateLimitBurst = 1
	handler := newTestServer(t, cfg).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/meals", bytes.NewBufferString(`{"name":"Oats"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create meal: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var meal struct {
		ID string `json:"id"`
	}
	json.NewDecoder(w.Body).Decode(&meal)

	upload := func() int {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.Close()
		req := httptest.NewRequest(http.MethodPut, "/v1/meals/"+meal.ID+"/images", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := upload(); code != http.StatusOK {
		t.Fatalf("first upload: expected 200, got %d", code)
	}
	if code := upload(); code != http.StatusTooManyRequests {
		t.Fatalf("second upload: expected 429, got %d", code)
	}

	// Other routes are not charged against the upload budget.
	req = httptest.NewRequest(http.MethodGet, "/v1/meals/"+meal.ID, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get meal: expected 200, got %d", w.Code)
	}
}
