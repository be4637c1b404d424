package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/akave-ai/hooklog/internal/config"
	"github.com/akave-ai/hooklog/internal/handler"
	"github.com/akave-ai/hooklog/internal/metrics"
	"github.com/akave-ai/hooklog/internal/repository"
	"github.com/akave-ai/hooklog/internal/response"
	"github.com/akave-ai/hooklog/internal/service"
	"github.com/akave-ai/hooklog/internal/storage"
	"github.com/akave-ai/hooklog/internal/store"
)

// Deps are the components the server routes to. Only Store, Service and
// Logger are required.
type Deps struct {
	Store      store.Store
	Service    *service.WebhookLogService
	Hub        *service.Hub
	Metrics    *metrics.Metrics
	NewRelic   *newrelic.Application
	Archives   *storage.O3Client
	TestSuites *repository.TestSuiteRepository
	Logger     zerolog.Logger
}

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	deps   Deps
	logger zerolog.Logger
}

// New builds the Echo server and registers routes.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		Config: cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "server").Logger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		requestLogger(s.logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		}),
		middleware.BodyLimit(cfg.Server.BodyLimit),
	)
	if deps.Metrics != nil {
		e.Use(metricsMiddleware(deps.Metrics))
	}
	if deps.NewRelic != nil {
		e.Use(newRelicMiddleware(deps.NewRelic))
	}
	s.Echo = e

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.Echo
	cfg := s.Config

	logs := &handler.WebhookLogHandler{Service: s.deps.Service, Logger: s.deps.Logger}
	if s.deps.Archives != nil {
		logs.Archives = s.deps.Archives
	}
	suites := &handler.TestSuiteHandler{Logger: s.deps.Logger}
	if s.deps.TestSuites != nil {
		suites.Repo = s.deps.TestSuites
	}
	admin := &handler.AdminHandler{
		Config:         cfg,
		Store:          s.deps.Store,
		ArchiveEnabled: s.deps.Archives != nil,
		Logger:         s.deps.Logger,
	}

	var appendMW []echo.MiddlewareFunc
	if cfg.Server.RateLimit > 0 {
		appendMW = append(appendMW, rateLimiter(cfg.Server.RateLimit))
	}

	api := e.Group("/api")
	api.GET("/webhook-logs", logs.List)
	api.POST("/webhook-logs", logs.Append, appendMW...)
	api.DELETE("/webhook-logs", logs.Clear)
	api.GET("/webhook-logs/stream", logs.Stream)
	api.GET("/webhook-logs/archives", logs.ListArchives)
	api.GET("/webhook-logs/archives/content", logs.GetArchive)

	api.GET("/test-suites", suites.List)
	api.GET("/debug/context", admin.DebugContext)
	api.POST("/debug/context", admin.DebugContext)
	api.GET("/observability/config", admin.ObservabilityConfig)

	e.GET("/beta", admin.BetaRedirect)
	e.GET("/healthz", admin.Health)
	e.GET("/readyz", admin.Ready)

	if s.deps.Metrics != nil && cfg.Observability.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}
}

// errorHandler renders every error, including router 404/405 and
// middleware rejections, as the standard JSON envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled request error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = response.Error(c, status, message)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("write error response")
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// rateLimiter limits webhook POSTs per client IP.
func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     int(perSecond) + 1,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}

// Start serves HTTP until ctx is cancelled or the listener fails. On cancel
// it shuts the server down within the configured timeout and returns only
// once Shutdown has finished.
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + s.Config.Server.Port
	s.logger.Info().Str("addr", addr).Str("store", s.Config.Store.Backend).Msg("listening")

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Echo.Start(addr) }()

	select {
	case err := <-serveErr:
		// listener failed before a shutdown was requested
		if cerr := s.Shutdown(context.Background()); cerr != nil {
			s.logger.Error().Err(cerr).Msg("shutdown after listener failure")
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	if serr := <-serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	return err
}

// Shutdown drains in-flight requests, then disconnects live tail clients and
// closes the store. Live tail connections are hijacked, so the drain does not
// wait for them.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	if cerr := s.deps.Store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
