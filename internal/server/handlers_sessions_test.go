package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/config"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
)

type mockSessionService struct {
	startFn func(ctx context.Context, userID uuid.UUID) (*domain.TrackingSession, error)
	stopFn  func(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	getFn   func(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	listFn  func(ctx context.Context, userID uuid.UUID) ([]domain.TrackingSession, error)
	gazeFn  func(ctx context.Context, sessionID string) ([]domain.GazePoint, error)
}

func (m *mockSessionService) StartSession(ctx context.Context, userID uuid.UUID) (*domain.TrackingSession, error) {
	return m.startFn(ctx, userID)
}

func (m *mockSessionService) StopSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error) {
	return m.stopFn(ctx, sessionID)
}

func (m *mockSessionService) GetSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error) {
	return m.getFn(ctx, sessionID)
}

func (m *mockSessionService) ListSessions(ctx context.Context, userID uuid.UUID) ([]domain.TrackingSession, error) {
	return m.listFn(ctx, userID)
}

func (m *mockSessionService) ListGazePoints(ctx context.Context, sessionID string) ([]domain.GazePoint, error) {
	return m.gazeFn(ctx, sessionID)
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate(_ context.Context) {
	m.calls++
}

type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.pingErr
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "8000",
		RingSize:             10,
		FixationThresholdPx:  40,
		LostFocusThreshold:   3 * time.Second,
		AlertCooldown:        5 * time.Second,
		FlushInterval:        50 * time.Millisecond,
		MaxSubscribers:       100,
		PersistInterval:      100 * time.Millisecond,
		PersistQueueCapacity: 200,
		PersistWorkers:       3,
	}
}

func newTestServer(sessions SessionService, registry *mockInvalidator) *Server {
	return NewServer(testConfig(), sessions, registry, nil, nil, &mockPinger{}, nil, clockwork.NewRealClock())
}

func TestHandleStartSession(t *testing.T) {
	userID := uuid.New()
	sessions := &mockSessionService{
		startFn: func(_ context.Context, gotUserID uuid.UUID) (*domain.TrackingSession, error) {
			assert.Equal(t, userID, gotUserID)
			return &domain.TrackingSession{
				SessionID: "session_1724800000.123456",
				UserID:    gotUserID,
				StartTime: time.Now(),
			}, nil
		},
	}
	registry := &mockInvalidator{}
	srv := newTestServer(sessions, registry)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/eye-tracking/sessions/start",
		strings.NewReader(`{"user_id":"`+userID.String()+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, srv.handleStartSession(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_1724800000.123456")
	assert.Equal(t, 1, registry.calls, "starting a session must invalidate the registry cache")
}

func TestHandleStartSession_MissingUserID(t *testing.T) {
	srv := newTestServer(&mockSessionService{}, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/eye-tracking/sessions/start", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, srv.handleStartSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStopSession(t *testing.T) {
	tests := []struct {
		name        string
		stopErr     error
		wantStatus  int
		wantInvalid int
	}{
		{"success", nil, http.StatusOK, 1},
		{"not found", domain.ErrSessionNotFound, http.StatusNotFound, 0},
		{"already ended", domain.ErrSessionEnded, http.StatusConflict, 0},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &mockSessionService{
				stopFn: func(_ context.Context, sessionID string) (*domain.TrackingSession, error) {
					if tt.stopErr != nil {
						return nil, tt.stopErr
					}
					endTime := time.Now()
					return &domain.TrackingSession{SessionID: sessionID, EndTime: &endTime}, nil
				},
			}
			registry := &mockInvalidator{}
			srv := newTestServer(sessions, registry)

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("session_id")
			c.SetParamValues("session_1.000000")

			require.NoError(t, srv.handleStopSession(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantInvalid, registry.calls)
		})
	}
}

func TestHandleListSessions(t *testing.T) {
	userID := uuid.New()
	sessions := &mockSessionService{
		listFn: func(_ context.Context, gotUserID uuid.UUID) ([]domain.TrackingSession, error) {
			assert.Equal(t, userID, gotUserID)
			return []domain.TrackingSession{{SessionID: "session_2.000000"}, {SessionID: "session_1.000000"}}, nil
		},
	}
	srv := newTestServer(sessions, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?user_id="+userID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, srv.handleListSessions(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_2.000000")
}

func TestHandleListSessions_InvalidUserID(t *testing.T) {
	srv := newTestServer(&mockSessionService{}, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?user_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, srv.handleListSessions(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListSessions_EmptyIsArray(t *testing.T) {
	sessions := &mockSessionService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]domain.TrackingSession, error) {
			return nil, nil
		},
	}
	srv := newTestServer(sessions, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?user_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, srv.handleListSessions(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleListGazePoints(t *testing.T) {
	sessions := &mockSessionService{
		getFn: func(_ context.Context, sessionID string) (*domain.TrackingSession, error) {
			return &domain.TrackingSession{SessionID: sessionID}, nil
		},
		gazeFn: func(_ context.Context, sessionID string) ([]domain.GazePoint, error) {
			return []domain.GazePoint{{SessionID: sessionID, X: 512, Y: 384}}, nil
		},
	}
	srv := newTestServer(sessions, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("session_1.000000")

	require.NoError(t, srv.handleListGazePoints(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gaze_x":512`)
}

func TestHandleListGazePoints_SessionNotFound(t *testing.T) {
	sessions := &mockSessionService{
		getFn: func(_ context.Context, _ string) (*domain.TrackingSession, error) {
			return nil, domain.ErrSessionNotFound
		},
	}
	srv := newTestServer(sessions, &mockInvalidator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("session_404.000000")

	require.NoError(t, srv.handleListGazePoints(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
