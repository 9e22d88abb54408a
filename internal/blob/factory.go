package blob

import (
	"fmt"
	"strings"

	appcfg "github.com/fdg312/meal-hub/internal/config"
	"go.uber.org/zap"
)

// Selection is the resolved meal image backend.
type Selection struct {
	// Store is nil in local mode: image bytes then sit next to the image rows
	// (memory maps or the meal_image_blobs table).
	Store  Store
	Mode   string // local | s3
	Reason string
}

// Open resolves BLOB_MODE (local|s3|auto). Auto prefers S3 and falls back to
// local when S3 is unconfigured or its client cannot be built; forced s3
// fails instead.
func Open(cfg appcfg.BlobConfig, logger *zap.SugaredLogger) (Selection, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	var sel Selection
	switch mode {
	case appcfg.BlobModeLocal:
		sel = Selection{Mode: appcfg.BlobModeLocal, Reason: "forced"}

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			logDiagnostics(logger, cfg.S3)
			sel = Selection{Mode: appcfg.BlobModeLocal, Reason: "auto, S3 not configured"}
			break
		}
		store, err := NewS3Store(cfg.S3)
		if err != nil {
			logger.Warnw("S3 client init failed, using local image storage", "error", err)
			sel = Selection{Mode: appcfg.BlobModeLocal, Reason: "auto, S3 init failed"}
			break
		}
		sel = Selection{Store: store, Mode: appcfg.BlobModeS3, Reason: "auto, configured"}

	case appcfg.BlobModeS3:
		if missing := cfg.S3.MissingRequired(); len(missing) > 0 {
			logDiagnostics(logger, cfg.S3)
			return Selection{}, fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}
		store, err := NewS3Store(cfg.S3)
		if err != nil {
			return Selection{}, fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}
		sel = Selection{Store: store, Mode: appcfg.BlobModeS3, Reason: "forced"}

	default:
		return Selection{}, fmt.Errorf("unsupported blob mode: %s", mode)
	}

	if sel.Store == nil {
		logger.Infow("meal image storage", "mode", sel.Mode, "reason", sel.Reason, "image_bytes", "database")
	} else {
		logger.Infow("meal image storage",
			"mode", sel.Mode,
			"reason", sel.Reason,
			"bucket", cfg.S3.Bucket,
			"endpoint", cfg.S3.Endpoint,
			"public_base_url", appcfg.NonEmptyOrDash(cfg.S3.PublicBaseURL),
			"prefer_public_url", cfg.S3.PreferPublicURL,
			"presign_ttl_seconds", cfg.S3.PresignTTLSeconds,
		)
	}
	return sel, nil
}

// logDiagnostics reports why S3 is unusable. Secrets are masked.
func logDiagnostics(logger *zap.SugaredLogger, cfg appcfg.S3Config) {
	level, code, msg := cfg.Diagnostics()
	fields := []any{
		"code", code,
		"missing", cfg.MissingRequired(),
		"access_key_id", appcfg.SetOrNot(cfg.AccessKeyID),
		"secret_access_key", appcfg.SetOrNot(cfg.SecretAccessKey),
	}
	if level == "WARN" {
		logger.Warnw("S3 "+msg, fields...)
		return
	}
	logger.Infow("S3 "+msg, fields...)
}
