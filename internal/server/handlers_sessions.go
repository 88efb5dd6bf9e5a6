package server

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
)

type startSessionRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (s *Server) handleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request body"})
	}
	if req.UserID == uuid.Nil {
		return c.JSON(400, map[string]string{"error": "user_id is required"})
	}

	ctx := c.Request().Context()
	session, err := s.sessions.StartSession(ctx, req.UserID)
	if err != nil {
		slog.Error("Failed to start session", "error", err)
		return c.JSON(500, map[string]string{"error": "Failed to start session"})
	}

	s.registry.Invalidate(ctx)
	return c.JSON(201, session)
}

func (s *Server) handleStopSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	_, err := s.sessions.StopSession(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(404, map[string]string{"error": "Session not found"})
	case errors.Is(err, domain.ErrSessionEnded):
		return c.JSON(409, map[string]string{"error": "Session already ended"})
	case err != nil:
		slog.Error("Failed to stop session", "session_id", sessionID, "error", err)
		return c.JSON(500, map[string]string{"error": "Failed to stop session"})
	}

	s.registry.Invalidate(ctx)
	return c.JSON(200, map[string]string{"message": "Session ended successfully"})
}

func (s *Server) handleListSessions(c echo.Context) error {
	userID, err := uuid.Parse(c.QueryParam("user_id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid user_id"})
	}

	sessions, err := s.sessions.ListSessions(c.Request().Context(), userID)
	if err != nil {
		slog.Error("Failed to list sessions", "user_id", userID, "error", err)
		return c.JSON(500, map[string]string{"error": "Failed to list sessions"})
	}
	if sessions == nil {
		sessions = []domain.TrackingSession{}
	}
	return c.JSON(200, sessions)
}

func (s *Server) handleListGazePoints(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(404, map[string]string{"error": "Session not found"})
		}
		slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		return c.JSON(500, map[string]string{"error": "Failed to load session"})
	}

	points, err := s.sessions.ListGazePoints(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to list gaze points", "session_id", sessionID, "error", err)
		return c.JSON(500, map[string]string{"error": "Failed to load gaze data"})
	}
	if points == nil {
		points = []domain.GazePoint{}
	}
	return c.JSON(200, points)
}
