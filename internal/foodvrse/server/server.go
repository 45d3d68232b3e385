package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/25x8/foodvrse/internal/foodvrse/config"
	"github.com/25x8/foodvrse/internal/foodvrse/handlers"
	"github.com/25x8/foodvrse/internal/foodvrse/impact"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
	"github.com/25x8/foodvrse/internal/foodvrse/service"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	log        *logger.Logger
	repo       repository.Repository
	notifier   service.Notifier
	processor  *service.PurchaseProcessor
	handler    *handlers.Handler
	httpServer *http.Server
}

// NewServer wires repository, services and handlers from configuration
func NewServer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	streak, err := impact.ParseStreakPolicy(cfg.StreakMode)
	if err != nil {
		return nil, err
	}

	var repo repository.Repository
	if cfg.DatabaseURI != "" {
		repo = repository.NewPostgresRepository()
	} else {
		log.Warn("DATABASE_URI not set, keeping state in memory")
		repo = repository.NewMemoryRepository()
	}

	var notifier service.Notifier = service.NewLogNotifier(log)
	if cfg.RedisAddr != "" {
		rn, err := service.NewRedisNotifier(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		notifier = rn
	}

	var graph service.FriendGraphProvider = service.NewRepoFriendGraph(repo)
	if cfg.ProfileAPIURL != "" {
		graph = service.NewProfileClient(cfg.ProfileAPIURL, cfg.ProfileAPIKey)
	}

	progress := service.NewProgressService(repo, notifier, streak, cfg.StoreTimeout, log)
	leaderboard := service.NewLeaderboardService(graph, progress, cfg.StoreTimeout)

	s := &Server{
		cfg:       cfg,
		log:       log,
		repo:      repo,
		notifier:  notifier,
		processor: service.NewPurchaseProcessor(repo, progress, cfg.PollInterval, log),
		handler:   handlers.NewHandler(repo, progress, leaderboard, cfg.JWTSecret, log),
	}
	s.httpServer = &http.Server{
		Addr:    cfg.RunAddress,
		Handler: s.Router(),
	}
	return s, nil
}

// Router builds the HTTP routing tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.handler.Routes(r)

	return r
}

// Run connects storage, starts the purchase processor and serves HTTP until shutdown
func (s *Server) Run() error {
	if err := s.repo.InitDB(s.cfg.DatabaseURI); err != nil {
		return err
	}

	s.processor.Start()

	s.log.Info("starting server", "addr", s.cfg.RunAddress, "streak_mode", s.cfg.StreakMode)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.processor != nil {
		s.processor.Stop()
	}

	if closer, ok := s.notifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.log.Warn("closing notifier", "error", err)
		}
	}

	return s.repo.Close()
}
