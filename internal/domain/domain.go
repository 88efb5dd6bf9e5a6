package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// TrackingSession is one eye-tracking session. Sessions are started and
// stopped through the session API; the pipeline only ever reads them.
type TrackingSession struct {
	SessionID string     `db:"session_id" json:"session_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time"`
}

// Active reports whether the session has not been ended yet.
func (s *TrackingSession) Active() bool {
	return s != nil && s.EndTime == nil
}

// GazeSource identifies what produced a gaze sample.
type GazeSource string

const (
	SourceHardware GazeSource = "hardware"
	SourceWebcam   GazeSource = "webcam"
	SourceUnknown  GazeSource = "unknown"
)

// ParseGazeSource maps a wire value to a known source, defaulting to unknown.
func ParseGazeSource(s string) GazeSource {
	switch GazeSource(s) {
	case SourceHardware, SourceWebcam:
		return GazeSource(s)
	case "tobii": // legacy value sent by the desktop companion app
		return SourceHardware
	default:
		return SourceUnknown
	}
}

// GazeSample is one in-flight gaze measurement. Samples are transient: they
// travel through detection and broadcast and are only projected into a
// GazePoint when persisted.
type GazeSample struct {
	X             float64
	Y             float64
	PupilDiameter float64
	Source        GazeSource
	SessionID     string
	ReceivedAt    time.Time
}

// Valid reports whether the sample carries finite coordinates. Samples with
// NaN or infinite coordinates must never reach detection, broadcast, or
// persistence.
func (s GazeSample) Valid() bool {
	return isFinite(s.X) && isFinite(s.Y)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// GazePoint is a durably stored gaze measurement, immutable once written.
type GazePoint struct {
	SessionID     string    `db:"session_id" json:"session_id"`
	X             float64   `db:"gaze_x" json:"gaze_x"`
	Y             float64   `db:"gaze_y" json:"gaze_y"`
	PupilDiameter float64   `db:"pupil_diameter" json:"pupil_diameter"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}

// AlertEvent is an attention alert pushed to subscribers. Never persisted.
type AlertEvent struct {
	Message   string
	EmittedAt time.Time
}

// --- Interfaces ---

// SessionStore is the external session collaborator. The pipeline resolves
// active sessions through it and never mutates session state itself.
type SessionStore interface {
	// ActiveSession returns the most recently started session without an end
	// timestamp, or ErrNoActiveSession if none exists.
	ActiveSession(ctx context.Context) (*TrackingSession, error)
	// GetSession returns a session by id, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*TrackingSession, error)
}

// GazeWriter is the persistence collaborator. Fire-and-forget from the
// pipeline's perspective: failures are logged, never acted upon.
type GazeWriter interface {
	WriteGazePoint(ctx context.Context, point GazePoint) error
}

// SessionRegistry answers "is there an active session, and which one" for
// the persistence workers. Lookup failures degrade to "no active session".
type SessionRegistry interface {
	ActiveSession(ctx context.Context) *TrackingSession
}

// AlertPublisher receives attention alerts from the detector.
type AlertPublisher interface {
	PublishAlert(event AlertEvent)
}
