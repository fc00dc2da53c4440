package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"volexplorer/internal/config"
	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/infrastructure"
	customMiddleware "volexplorer/internal/middleware"
	"volexplorer/internal/panel"
	"volexplorer/internal/services"
	"volexplorer/internal/session"
	handlers "volexplorer/internal/transport/http"
	ws "volexplorer/internal/websocket"
)

var (
	// Version is overridden at link time with -ldflags "-X volexplorer/internal/app.Version=..."
	Version = config.AppVersion
	// BuildTime is set at link time
	BuildTime = "unknown"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Dataset       *panel.Dataset
	Sessions      *session.Store
	WebSocketHub  *ws.Hub
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Panel       *services.PanelService
	Screener    *services.ScreenerService
	Instruments *services.InstrumentService
	Portfolio   *services.PortfolioService
	Health      *services.HealthService
}

// NewApplication loads the dataset and wires every component. A dataset that
// cannot be loaded is returned as a wrapped *panel.DataLoadError.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "app")

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.String("dataset", cfg.Dataset.Path))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	start := time.Now()
	dataset, err := panel.Load(cfg.Dataset.Path, panel.LoadOptions{
		TimeColumn: cfg.Dataset.TimeColumn,
		Sheet:      cfg.Dataset.Sheet,
	})
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	first, last := dataset.TimeRange()
	logger.Info("Dataset loaded",
		slog.String("source", dataset.Source()),
		slog.Int("instruments", len(dataset.InstrumentIDs())),
		slog.Int("time_ids", len(dataset.TimeIDs())),
		slog.Int64("start_time_id", first),
		slog.Int64("end_time_id", last),
		slog.Int("observations", dataset.Len()),
		slog.Duration("took", time.Since(start)))

	a := &Application{
		Config:        cfg,
		Dataset:       dataset,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds the session store, the hub and the services on top of the dataset
func (a *Application) initializeServices() {
	a.Sessions = session.NewStore(a.Config.Session, a.Logger, session.WithMetrics(a.Metrics))
	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)

	tracer := a.OTelProviders.Tracer
	panelService := services.NewPanelService(a.Dataset, a.Config.Screener.DefaultTopN)

	a.Services = &ServiceContainer{
		Panel: panelService,
		Screener: services.NewScreenerService(a.Dataset,
			a.Config.Screener.DefaultTopN, a.Config.Screener.CacheSize,
			tracer, a.Metrics, a.Logger),
		Instruments: services.NewInstrumentService(a.Dataset, a.Config.Screener.SeriesTicks, tracer, a.Logger),
		Portfolio:   services.NewPortfolioService(a.Dataset, a.Sessions, a.WebSocketHub, tracer, a.Metrics, a.Logger),
		Health:      services.NewHealthService(Version, BuildTime, panelService, a.Sessions, a.WebSocketHub, a.Logger),
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// These don't wrap the ResponseWriter, so they are safe for the WebSocket upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	sessions := customMiddleware.Session(a.Sessions, customMiddleware.SessionConfig{
		CookieName: a.Config.Session.CookieName,
		Secure:     a.Config.Session.CookieSecure,
	})

	wsHandler := handlers.NewWebSocketHandler(
		a.WebSocketHub,
		ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins),
		a.Config.WebSocket,
		a.Logger,
		a.ErrorHandler,
	)
	r.With(sessions).Handle("/ws", wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, sessions)
	})

	a.Router = r
}

// setupAPIRoutes configures the /api endpoints
func (a *Application) setupAPIRoutes(r chi.Router, sessions func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Get("/panel", handlers.NewPanelHandler(a.Services.Panel).Summary)

		screenerHandler := handlers.NewScreenerHandler(a.Services.Screener, a.Logger, a.ErrorHandler)
		r.Mount("/screener", screenerHandler.Routes())

		instrumentHandler := handlers.NewInstrumentHandler(a.Services.Instruments, a.Logger, a.ErrorHandler)
		r.Mount("/instruments", instrumentHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(sessions)
			portfolioHandler := handlers.NewPortfolioHandler(a.Services.Portfolio, customMiddleware.NewValidator(), a.Logger, a.ErrorHandler)
			r.Mount("/portfolio", portfolioHandler.Routes())
		})
	})
}

// corsConfig exposes the session and request id headers so browser clients can keep them
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			config.RequestIDHeader,
			config.SessionHeader,
		},
		ExposedHeaders: []string{
			config.RequestIDHeader,
			config.SessionHeader,
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run listens on the configured port and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server, the session janitor and the WebSocket hub on ln
// until ctx is cancelled or one of them fails, then shuts everything down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Sessions.Run(gctx)
	})
	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", ln.Addr().String()),
			slog.String("version", Version))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the HTTP server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Int("sessions", a.Sessions.Len()),
		slog.Any("websocket", a.WebSocketHub.Stats()))
	return errors.Join(errs...)
}
