package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fdg312/meal-hub/internal/auth"
	"github.com/fdg312/meal-hub/internal/blob"
	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/diets"
	"github.com/fdg312/meal-hub/internal/logging"
	"github.com/fdg312/meal-hub/internal/meals"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/storage/memory"
	"github.com/fdg312/meal-hub/internal/storage/postgres"
	"github.com/fdg312/meal-hub/internal/tags"
	"go.uber.org/zap"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	logger         *zap.SugaredLogger
	mux            *http.ServeMux
	storage        storage.Storage
	blobStore      blob.Store
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер. A nil logger discards output.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.initStorage()

	if err := s.initBlobStore(); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.routes(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		s.logger.Info("using in-memory storage")
		s.storage = memory.New()
		return
	}

	s.logger.Info("connecting to PostgreSQL")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		s.logger.Errorw("PostgreSQL connection failed, falling back to in-memory storage", "error", err)
		s.storage = memory.New()
		return
	}
	s.logger.Info("PostgreSQL connected")
	s.storage = pgStorage
}

// initBlobStore follows BLOB_MODE. A nil store means local mode.
func (s *Server) initBlobStore() error {
	sel, err := blob.Open(s.config.Blob, s.logger.Named("blob"))
	if err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	s.blobStore = sel.Store
	return nil
}

// routes регистрирует маршруты
func (s *Server) routes() error {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService, s.logger.Named("auth"))

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	// Meals API
	mealsService, err := meals.NewService(s.storage.Meals(), s.storage.MealImages(), meals.Options{
		BlobStore:       s.blobStore,
		PublicBaseURL:   s.config.Blob.S3.PublicBaseURL,
		PreferPublicURL: s.config.Blob.S3.PreferPublicURL,
		PresignTTL:      s.config.Blob.S3.PresignTTLSeconds,
		MaxUploadMB:     s.config.UploadMaxMB,
		AllowedMimes:    s.config.UploadAllowedMime,
		MaxSlots:        s.config.MealImagesMaxSlots,
		StrictSlots:     !s.config.IsProduction(),
		Tags:            tags.Builder{},
		Logger:          s.logger.Named("meals"),
	})
	if err != nil {
		return err
	}
	mealsHandler := meals.NewHandlers(mealsService)

	s.mux.HandleFunc("POST /v1/meals", mealsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/meals", mealsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/meals/{id}", mealsHandler.HandleGet)
	s.mux.HandleFunc("PATCH /v1/meals/{id}", mealsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/meals/{id}", mealsHandler.HandleDelete)

	// GET /v1/meals/{id}/card - display card (macros, tags, labels)
	s.mux.HandleFunc("GET /v1/meals/{id}/card", mealsHandler.HandleCard)

	// PUT /v1/meals/{id}/images - image slot update (multipart), own rate budget
	s.mux.Handle("PUT /v1/meals/{id}/images",
		UploadRateLimit(s.config, http.HandlerFunc(mealsHandler.HandleUpdateImages)))

	// GET /v1/meals/{id}/images/{imageId} - redirect (s3) or bytes (local)
	s.mux.HandleFunc("GET /v1/meals/{id}/images/{imageId}", mealsHandler.HandleGetImage)

	s.mux.HandleFunc("GET /v1/users/me/meals", mealsHandler.HandleListMine)

	// Diets API
	dietsService := diets.NewService(s.storage.Diets(), s.storage.Meals(), s.logger.Named("diets"))
	dietsHandler := diets.NewHandlers(dietsService)

	s.mux.HandleFunc("POST /v1/diets", dietsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/diets", dietsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/diets/{id}", dietsHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/diets/{id}", dietsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/diets/{id}", dietsHandler.HandleDelete)

	// GET /v1/diets/{id}/summary - averages and per-day nutrients
	s.mux.HandleFunc("GET /v1/diets/{id}/summary", dietsHandler.HandleSummary)

	s.mux.HandleFunc("GET /v1/diets/{id}/export.pdf", dietsHandler.HandleExportPDF)
	s.mux.HandleFunc("GET /v1/diets/{id}/export.csv", dietsHandler.HandleExportCSV)

	s.mux.HandleFunc("GET /v1/users/me/diets", dietsHandler.HandleListMine)

	return nil
}

// Handler builds the middleware chain (outermost first): CORS → Auth → Rate Limit → Router.
// Rate limiting sits inside auth so that buckets are per user.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = RateLimitMiddleware(s.config, handler)
	if s.authMiddleware != nil {
		handler = s.authMiddleware.Handler(handler)
	}
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start запускает HTTP сервер и блокируется до Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(s.logger.Named("http")),
	}

	s.logger.Infof("listening on http://localhost%s", addr)
	s.logger.Infof("health check: http://localhost%s/healthz", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
