package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/perfguard/backend/internal/api/http"
	"github.com/perfguard/backend/internal/api/middleware"
	"github.com/perfguard/backend/internal/api/ws"
	"github.com/perfguard/backend/internal/domain/engine"
	"github.com/perfguard/backend/internal/domain/tracker"
	"github.com/perfguard/backend/internal/domain/whitelist"
	"github.com/perfguard/backend/internal/infrastructure/config"
	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
	"github.com/perfguard/backend/internal/infrastructure/persistence"
	"github.com/perfguard/backend/internal/providers/input"
	"github.com/perfguard/backend/internal/providers/process"
	"github.com/perfguard/backend/internal/shared/types"
)

// Version is the agent version reported by the health endpoint.
const Version = "0.3.0"

// Server wires every component together: persisted state, the tick
// engine, and the local HTTP/WebSocket API.
type Server struct {
	cfg       *config.Config
	log       *logging.Logger
	router    *gin.Engine
	httpSrv   *http.Server
	engine    *engine.Engine
	recorder  *input.Recorder
	hub       *ws.Hub
	debouncer *persistence.Debouncer
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()

	store := persistence.NewFileStore(cfg.DataFile()).
		WithLogger(log).
		WithBackup(cfg.Persistence.Backup)

	data, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted state: %w", err)
	}
	log.Info("persisted state loaded",
		zap.Int("sessions", len(data.Sessions)),
		zap.Int("whitelist", len(data.Whitelist)),
		zap.Int64("next_session_id", data.NextSessionID),
	)

	wl := whitelist.New(data.Whitelist)
	trk := tracker.New(data.NextSessionID, cfg.Tracking.LiveHistoryCap).
		WithLogger(log.Component("tracker")).
		WithMetrics(metrics)
	recorder := input.NewRecorder()
	hub := ws.NewHub().WithLogger(log).WithMetrics(metrics)

	eng := engine.New(engine.Deps{
		Snapshots: process.NewSnapshotter(),
		Activity:  recorder,
		Whitelist: wl,
		Tracker:   trk,
		Store:     store,
	}, cfg.Tracking.Interval).
		WithLogger(log).
		WithMetrics(metrics).
		WithBroadcaster(hub).
		WithCategories(categoriesFromConfig(cfg.Tracking))
	eng.Seed(data.Sessions)

	s := &Server{
		cfg:      cfg,
		log:      log,
		engine:   eng,
		recorder: recorder,
		hub:      hub,
	}

	if cfg.Cloud.Enabled && cfg.Cloud.BaseURL != "" {
		cloud := persistence.NewHTTPCloudStore(cfg.Cloud.BaseURL, cfg.Cloud.Token)
		syncer := persistence.NewCloudSyncer(store, cloud).
			WithLogger(log).
			WithMetrics(metrics)
		eng.WithSyncer(syncer)

		// Whitelist edits sync after a quiet period instead of per edit.
		s.debouncer = persistence.NewDebouncer(cfg.Cloud.Debounce, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := eng.SyncNow(ctx); err != nil {
				log.Warn("debounced cloud sync failed", zap.Error(err))
			}
		})
		wl.OnChange(s.debouncer.Trigger)
		log.Info("cloud sync enabled", zap.String("base_url", cfg.Cloud.BaseURL))
	}

	s.router = s.buildRouter(metrics)
	s.httpSrv = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
	}
	return s, nil
}

// Recorder exposes the input recorder so platform hooks can feed it.
func (s *Server) Recorder() *input.Recorder {
	return s.recorder
}

// Run starts the tick loop and the HTTP server, blocking until the
// context is cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	engCtx, cancelEngine := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		s.engine.Run(engCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancelEngine()
		<-engineDone
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	if s.debouncer != nil {
		s.debouncer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown failed", zap.Error(err))
	}

	// Closing the engine last persists every session closed on the way out.
	cancelEngine()
	<-engineDone
	return nil
}

func (s *Server) buildRouter(metrics *monitoring.Metrics) *gin.Engine {
	if !s.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.cfg.RateLimit.RequestsPerSecond,
			Burst:             s.cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(s.engine, Version).WithMetrics(metrics)

	router.GET("/", handlers.Health)
	router.GET("/health", handlers.Health)
	router.GET("/processes", handlers.ListProcesses)

	router.GET("/whitelist", handlers.ListWhitelist)
	router.POST("/whitelist", handlers.AddApp)
	router.DELETE("/whitelist/:id", handlers.RemoveApp)
	router.PATCH("/whitelist/:id", handlers.SetTracked)

	router.GET("/sessions", handlers.ListSessions)
	router.GET("/summary/daily", handlers.DailySummary)
	router.GET("/summary/:app", handlers.AppSummary)

	router.POST("/sync", handlers.SyncNow)
	router.POST("/wake", handlers.Wake)

	router.GET("/stream", s.hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func categoriesFromConfig(cfg config.TrackingConfig) map[string]types.Category {
	categories := make(map[string]types.Category, len(cfg.ProductiveApps)+len(cfg.DistractiveApps))
	for _, app := range cfg.ProductiveApps {
		categories[app] = types.CategoryProductive
	}
	for _, app := range cfg.DistractiveApps {
		categories[app] = types.CategoryDistractive
	}
	return categories
}
