package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("MEAL_IMAGES_MAX_SLOTS", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("BLOB_MODE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("UPLOAD_RATE_LIMIT_PER_MIN", "")
	t.Setenv("UPLOAD_RATE_LIMIT_BURST", "")

	cfg := Load()

	if cfg.Env != "local" {
		t.Errorf("expected env=local, got %s", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.MealImagesMaxSlots != 5 {
		t.Errorf("expected 5 image slots, got %d", cfg.MealImagesMaxSlots)
	}
	if cfg.AuthMode != AuthModeNone || cfg.AuthRequired {
		t.Errorf("expected auth disabled, got mode=%s required=%t", cfg.AuthMode, cfg.AuthRequired)
	}
	if cfg.Blob.Mode != BlobModeLocal {
		t.Errorf("expected blob mode local, got %s", cfg.Blob.Mode)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Error("expected localhost CORS origins in local env")
	}
	if cfg.UploadRateLimitPerMin != 30 || cfg.UploadRateLimitBurst != 5 {
		t.Errorf("expected upload limit 30/min burst 5, got %d/%d", cfg.UploadRateLimitPerMin, cfg.UploadRateLimitBurst)
	}
}

func TestLoadDatabasePriority(t *testing.T) {
	t.Setenv("DATABASE_URL_POOLED", "postgres://pooled")
	t.Setenv("DATABASE_URL", "postgres://url")
	t.Setenv("DATABASE_URL_DIRECT", "postgres://direct")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://pooled" {
		t.Fatalf("expected pooled URL at runtime, got %s", cfg.DatabaseURL)
	}
	if cfg.DatabaseURLDirect != "postgres://direct" {
		t.Fatalf("expected direct URL preserved, got %s", cfg.DatabaseURLDirect)
	}
}

func TestLoadUnknownModesFallBack(t *testing.T) {
	t.Setenv("AUTH_MODE", "siwa")
	t.Setenv("AUTH_REQUIRED", "1")
	t.Setenv("BLOB_MODE", "gcs")

	cfg := Load()
	if cfg.AuthMode != AuthModeNone {
		t.Errorf("expected fallback to none, got %s", cfg.AuthMode)
	}
	if cfg.AuthRequired {
		t.Error("AUTH_REQUIRED must be ignored when auth mode is none")
	}
	if cfg.Blob.Mode != BlobModeLocal {
		t.Errorf("expected fallback to local, got %s", cfg.Blob.Mode)
	}
}

func TestS3ConfigDiagnostics(t *testing.T) {
	ready := S3Config{
		Endpoint:        "https://storage.example.com",
		Region:          "eu-central-1",
		Bucket:          "meal-images",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://cdn.example.com/meal-images",
	}

	tests := []struct {
		name      string
		cfg       S3Config
		wantLevel string
		wantCode  string
	}{
		{"empty", S3Config{}, "INFO", "s3_not_configured"},
		{"partial", S3Config{Endpoint: "https://storage.example.com", Bucket: "b"}, "WARN", "s3_partial_config"},
		{"ready", ready, "INFO", "s3_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code, _ := tt.cfg.Diagnostics()
			if level != tt.wantLevel || code != tt.wantCode {
				t.Fatalf("expected %s/%s, got %s/%s", tt.wantLevel, tt.wantCode, level, code)
			}
		})
	}

	if !ready.IsConfigured() {
		t.Fatal("expected ready config to be configured")
	}
	if got := len((S3Config{Bucket: "b"}).MissingRequired()); got != 5 {
		t.Fatalf("expected 5 missing keys, got %d", got)
	}
}
