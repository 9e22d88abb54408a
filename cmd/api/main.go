package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/dbmigrate"
	"github.com/fdg312/meal-hub/internal/httpserver"
	"github.com/fdg312/meal-hub/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New("api", cfg.LogLevel)
	defer logger.Sync()

	printStartupBanner(cfg, logger)

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectTarget(cfg, true)
		if err != nil {
			logger.Fatalw("startup migrations", "error", err)
		}

		logger.Infow("startup migrations", "command", "up", "using", target.Source)
		if err := dbmigrate.Run("up", target, logging.StdLogger(logger.Named("goose"))); err != nil {
			logger.Fatalw("startup migrations failed", "error", err)
		}
		logger.Info("startup migrations completed")
	}

	if err := validateProductionConfig(cfg); err != nil {
		logger.Fatal(err)
	}

	server, err := httpserver.New(cfg, logger.Named("http"))
	if err != nil {
		logger.Fatalw("server initialization failed", "error", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalw("server stopped", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("graceful shutdown failed", "error", err)
		}
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// No secrets are ever printed, only masked indicators ("set" / "not set").
func printStartupBanner(cfg *config.Config, logger *zap.SugaredLogger) {
	logger.Info("========== Meal Hub API ==========")
	logger.Infof("  env              = %s", cfg.Env)
	logger.Infof("  port             = %d", cfg.Port)
	logger.Infof("  log_level        = %s", cfg.LogLevel)

	logger.Info("---- database ----")
	logger.Infof("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
	logger.Infof("  pooled           = %s", config.SetOrNot(cfg.DatabaseURLPooled))
	logger.Infof("  direct           = %s", config.SetOrNot(cfg.DatabaseURLDirect))
	logger.Infof("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	if cfg.RunMigrationsOnStartup && cfg.DatabaseURLDirect == "" {
		logger.Warn("  migrations_via   = (will fail, DATABASE_URL_DIRECT not set)")
	}

	logger.Info("---- auth ----")
	logger.Infof("  auth_mode        = %s", cfg.AuthMode)
	logger.Infof("  auth_required    = %t", cfg.AuthRequired)
	logger.Infof("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, "change_me"))

	logger.Info("---- meal images ----")
	logger.Infof("  blob_mode        = %s", cfg.Blob.Mode)
	if cfg.Blob.Mode != config.BlobModeLocal {
		logger.Infof("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}
	logger.Infof("  max_slots        = %d", cfg.MealImagesMaxSlots)
	logger.Infof("  upload_max_mb    = %d", cfg.UploadMaxMB)
	logger.Infof("  allowed_mime     = %s", cfg.UploadAllowedMime)
	logger.Infof("  upload_limit     = %d/min burst %d", cfg.UploadRateLimitPerMin, cfg.UploadRateLimitBurst)

	logger.Info("==================================")
}

// validateProductionConfig performs checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) error {
	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			return fmt.Errorf("blob: BLOB_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if !cfg.IsProduction() {
		return nil
	}

	if cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		return fmt.Errorf("auth: JWT_SECRET must not be 'change_me' in %s with AUTH_REQUIRED=1", cfg.Env)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("db: no DATABASE_URL configured in %s", cfg.Env)
	}
	return nil
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
