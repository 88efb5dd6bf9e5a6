package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/broadcast"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/config"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/correlation"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/ingest"
)

// SessionService is the session management surface exposed over HTTP. The
// pipeline never calls these; producers and the dashboard do.
type SessionService interface {
	StartSession(ctx context.Context, userID uuid.UUID) (*domain.TrackingSession, error)
	StopSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]domain.TrackingSession, error)
	ListGazePoints(ctx context.Context, sessionID string) ([]domain.GazePoint, error)
}

// cacheInvalidator drops the registry's cached active-session resolution so
// API-driven session changes become visible to the persistence workers
// immediately instead of after the cache TTL.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// postgresHealthChecker is a minimal interface for PostgreSQL health checks
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

// redisHealthChecker is a minimal interface for Redis health checks
type redisHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	sessions  SessionService
	registry  cacheInvalidator
	hub       *broadcast.Hub
	queue     ingest.Offerer
	clock     clockwork.Clock
	db        postgresHealthChecker
	redis     redisHealthChecker // nil when Redis is not configured
	startTime time.Time
}

// NewServer wires the HTTP and WebSocket surface. redis may be nil.
func NewServer(
	cfg *config.Config,
	sessions SessionService,
	registry cacheInvalidator,
	hub *broadcast.Hub,
	queue ingest.Offerer,
	db postgresHealthChecker,
	redis redisHealthChecker,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(correlationMiddleware)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Request handled",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		sessions:  sessions,
		registry:  registry,
		hub:       hub,
		queue:     queue,
		clock:     clock,
		db:        db,
		redis:     redis,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// correlationMiddleware tags every request context with a fresh correlation
// ID; the logging handler picks it up on context-aware log calls.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
