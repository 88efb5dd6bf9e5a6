package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

const sessionColumns = `session_id, user_id, start_time, end_time`

// SessionStore implements domain.SessionStore and domain.GazeWriter backed by
// PostgreSQL. It also carries the session-management operations used by the
// REST API; the pipeline itself only ever reads.
type SessionStore struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

func NewSessionStore(pool *pgxpool.Pool, clock clockwork.Clock) *SessionStore {
	return &SessionStore{pool: pool, clock: clock}
}

// --- Reads used by the pipeline ---

// ActiveSession resolves the most recently started session that has not been
// ended. Returns domain.ErrNoActiveSession when none exists.
func (s *SessionStore) ActiveSession(ctx context.Context) (*domain.TrackingSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM eye_tracking_sessions
		WHERE end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active session: %w", err)
	}
	return session, nil
}

// GetSession returns a session by id, or domain.ErrSessionNotFound.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM eye_tracking_sessions
		WHERE session_id = $1
	`, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// --- Session management (REST API surface, never called by the pipeline) ---

// StartSession creates a new tracking session owned by userID. Session ids
// follow the original client convention of "session_<unix time>".
func (s *SessionStore) StartSession(ctx context.Context, userID uuid.UUID) (*domain.TrackingSession, error) {
	sessionID := fmt.Sprintf("session_%.6f", float64(s.clock.Now().UnixMicro())/1e6)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO eye_tracking_sessions (session_id, user_id, start_time)
		VALUES ($1, $2, NOW())
		RETURNING `+sessionColumns+`
	`, sessionID, userID)

	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return session, nil
}

// StopSession sets the end timestamp of a session. Returns
// domain.ErrSessionNotFound for unknown ids and domain.ErrSessionEnded if the
// session was already stopped.
func (s *SessionStore) StopSession(ctx context.Context, sessionID string) (*domain.TrackingSession, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE eye_tracking_sessions
		SET end_time = NOW()
		WHERE session_id = $1 AND end_time IS NULL
		RETURNING `+sessionColumns+`
	`, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either unknown or already ended; look again to tell them apart.
		existing, getErr := s.GetSession(ctx, sessionID)
		if getErr != nil {
			return nil, getErr
		}
		if !existing.Active() {
			return nil, domain.ErrSessionEnded
		}
		return nil, fmt.Errorf("failed to stop session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions of a user, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]domain.TrackingSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM eye_tracking_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.TrackingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// --- Gaze persistence ---

// WriteGazePoint inserts one gaze point, guarded against the session having
// ended between resolution and write: the conditional insert re-checks the
// end timestamp atomically and returns domain.ErrSessionEnded if it is set.
func (s *SessionStore) WriteGazePoint(ctx context.Context, point domain.GazePoint) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO gaze_data (session_id, gaze_x, gaze_y, pupil_diameter, timestamp)
		SELECT session_id, $2, $3, $4, $5
		FROM eye_tracking_sessions
		WHERE session_id = $1 AND end_time IS NULL
	`, point.SessionID, point.X, point.Y, point.PupilDiameter, point.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to write gaze point: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionEnded
	}
	return nil
}

// ListGazePoints returns the persisted points of a session, newest first.
func (s *SessionStore) ListGazePoints(ctx context.Context, sessionID string) ([]domain.GazePoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, gaze_x, gaze_y, pupil_diameter, timestamp
		FROM gaze_data
		WHERE session_id = $1
		ORDER BY timestamp DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gaze points: %w", err)
	}
	defer rows.Close()

	var points []domain.GazePoint
	for rows.Next() {
		var p domain.GazePoint
		if err := rows.Scan(&p.SessionID, &p.X, &p.Y, &p.PupilDiameter, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan gaze point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanSession(row pgx.Row) (*domain.TrackingSession, error) {
	var session domain.TrackingSession
	if err := row.Scan(&session.SessionID, &session.UserID, &session.StartTime, &session.EndTime); err != nil {
		return nil, err
	}
	return &session, nil
}
