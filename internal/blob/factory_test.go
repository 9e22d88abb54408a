package blob

import (
	"strings"
	"testing"

	appcfg "github.com/fdg312/meal-hub/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func configuredS3() appcfg.S3Config {
	return appcfg.S3Config{
		Endpoint:          "https://s3.example.com",
		Region:            "eu-central-1",
		Bucket:            "meal-images",
		AccessKeyID:       "key",
		SecretAccessKey:   "s3cr3t-value",
		PublicBaseURL:     "https://cdn.example.com",
		PresignTTLSeconds: 900,
	}
}

func TestOpenLocalForced(t *testing.T) {
	logger, logs := observed()

	sel, err := Open(appcfg.BlobConfig{Mode: appcfg.BlobModeLocal, S3: configuredS3()}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sel.Store != nil || sel.Mode != appcfg.BlobModeLocal || sel.Reason != "forced" {
		t.Fatalf("expected forced local selection, got %+v", sel)
	}

	entries := logs.FilterMessage("meal image storage").All()
	if len(entries) != 1 || entries[0].ContextMap()["image_bytes"] != "database" {
		t.Fatalf("expected local storage log, got %+v", logs.All())
	}
}

func TestOpenEmptyModeIsLocal(t *testing.T) {
	sel, err := Open(appcfg.BlobConfig{}, nil)
	if err != nil || sel.Mode != appcfg.BlobModeLocal {
		t.Fatalf("expected local, got %+v err=%v", sel, err)
	}
}

func TestOpenAutoWithoutS3FallsBackToLocal(t *testing.T) {
	logger, logs := observed()

	sel, err := Open(appcfg.BlobConfig{Mode: appcfg.BlobModeAuto}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sel.Store != nil || sel.Mode != appcfg.BlobModeLocal {
		t.Fatalf("expected local fallback, got %+v", sel)
	}
	if sel.Reason != "auto, S3 not configured" {
		t.Errorf("unexpected reason %q", sel.Reason)
	}
	if n := logs.FilterField(zap.String("code", "s3_not_configured")).Len(); n != 1 {
		t.Errorf("expected s3_not_configured diagnostics, got %+v", logs.All())
	}
}

func TestOpenAutoPartialS3WarnsAndFallsBack(t *testing.T) {
	logger, logs := observed()

	s3 := configuredS3()
	s3.SecretAccessKey = ""
	sel, err := Open(appcfg.BlobConfig{Mode: appcfg.BlobModeAuto, S3: s3}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sel.Store != nil {
		t.Fatal("expected nil store on partial config")
	}

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warnings) != 1 || warnings[0].ContextMap()["code"] != "s3_partial_config" {
		t.Fatalf("expected partial config warning, got %+v", logs.All())
	}
	if warnings[0].ContextMap()["secret_access_key"] != "not set" {
		t.Errorf("expected masked secret status, got %v", warnings[0].ContextMap()["secret_access_key"])
	}
}

func TestOpenS3MissingRequiredReturnsError(t *testing.T) {
	sel, err := Open(appcfg.BlobConfig{
		Mode: appcfg.BlobModeS3,
		S3:   appcfg.S3Config{Endpoint: "https://storage.yandexcloud.net"},
	}, nil)
	if err == nil {
		t.Fatal("expected error when mode=s3 and required env are missing")
	}
	if sel.Store != nil || sel.Mode != "" {
		t.Fatalf("expected empty selection on error, got %+v", sel)
	}
	if !strings.Contains(err.Error(), "S3_BUCKET") {
		t.Fatalf("expected missing keys in error, got: %v", err)
	}
}

func TestOpenAutoConfiguredUsesS3(t *testing.T) {
	logger, logs := observed()

	sel, err := Open(appcfg.BlobConfig{Mode: appcfg.BlobModeAuto, S3: configuredS3()}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sel.Mode != appcfg.BlobModeS3 {
		t.Fatalf("expected mode=s3, got %s", sel.Mode)
	}
	if _, ok := sel.Store.(*S3Store); !ok {
		t.Fatalf("expected *S3Store, got %T", sel.Store)
	}

	for _, entry := range logs.All() {
		for k, v := range entry.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, "s3cr3t-value") {
				t.Fatalf("secret leaked into field %s", k)
			}
		}
	}
	if n := logs.FilterField(zap.String("bucket", "meal-images")).Len(); n != 1 {
		t.Errorf("expected bucket in storage log, got %+v", logs.All())
	}
}
