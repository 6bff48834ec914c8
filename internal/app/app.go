package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"anemiatrack/internal/config"
	"anemiatrack/internal/dataprocessing"
	apierrors "anemiatrack/internal/errors"
	"anemiatrack/internal/exporter"
	"anemiatrack/internal/infrastructure"
	custommw "anemiatrack/internal/middleware"
	"anemiatrack/internal/services"
	"anemiatrack/internal/store"
	handlers "anemiatrack/internal/transport/http"
)

// Application is the composition root holding every wired component.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Store     *store.Store
	Router    *chi.Mux
	Server    *http.Server

	surveyService *services.SurveyService
	authService   *services.AuthService
}

// NewApplication loads configuration and wires all services.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", cfg.Server.Port))

	telemetry, err := infrastructure.InitTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	st, err := store.Connect(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetry,
		Store:     st,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices() {
	normalizer := dataprocessing.NewNormalizer(a.Logger)
	merger := dataprocessing.NewMerger(a.Store, a.Config.Pipeline.StartYear, a.Logger)

	a.surveyService = services.NewSurveyService(
		normalizer,
		merger,
		a.Store,
		exporter.NewXLSXWriter(a.Logger),
		exporter.NewCSVWriter(a.Logger),
		a.Telemetry,
		a.Logger,
	)
	a.authService = services.NewAuthService(a.Store, a.Config.Security.BcryptCost, a.Logger)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Group(func(r chi.Router) {
		r.Use(custommw.Metrics(a.Telemetry))
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(custommw.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/api", func(r chi.Router) {
			surveyHandler := handlers.NewSurveyHandler(
				a.surveyService,
				a.Config.Server.MaxUploadBytes,
				a.Logger,
				errorHandler,
			)
			uploadGuard := custommw.BasicAuth(a.authService, a.Logger)
			r.Mount("/data", surveyHandler.Routes(uploadGuard))

			authHandler := handlers.NewAuthHandler(a.authService, a.Logger, errorHandler)
			r.Mount("/auth", authHandler.Routes())

			healthHandler := handlers.NewHealthHandler(a.surveyService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
		})

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	// Outside the middleware group so scrapes stay cheap.
	if a.Telemetry.PrometheusHTTP != nil {
		r.Handle("/metrics", a.Telemetry.PrometheusHTTP)
	}

	a.Router = r
}

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

// Run starts the HTTP server and blocks until the context is cancelled
// or an interrupt arrives, then shuts everything down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.Logger.Info("shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.Store.Close(shutdownCtx); err != nil {
		a.Logger.Error("error closing document store", slog.String("error", err.Error()))
	}

	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("error shutting down telemetry", slog.String("error", err.Error()))
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.Error("error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.Info("application shutdown complete")
	return nil
}

// StartupProbe pings the store with a bounded timeout. Deployment
// scripts call this through the health endpoint; it is also handy in
// integration tests.
func (a *Application) StartupProbe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.Store.Ping(ctx)
}
