package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Session management API
	s.echo.POST("/api/eye-tracking/sessions/start", s.handleStartSession)
	s.echo.POST("/api/eye-tracking/sessions/stop/:session_id", s.handleStopSession)
	s.echo.GET("/api/eye-tracking/sessions", s.handleListSessions)
	s.echo.GET("/api/eye-tracking/sessions/:session_id/gaze", s.handleListGazePoints)

	// WebSocket endpoints: producers push samples in, subscribers fan out
	s.echo.GET("/ws/gaze-collector", s.handleGazeCollector)
	s.echo.GET("/ws/eye-tracking", s.handleEyeTracking)
}
