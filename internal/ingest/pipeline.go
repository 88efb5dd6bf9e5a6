package ingest

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/gaze"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const messageTypeGazeSample = "gaze-sample"

// GazePublisher is the subset of the broadcast hub the pipeline needs.
type GazePublisher interface {
	PublishGaze(streamID uuid.UUID, sample domain.GazeSample)
}

// Offerer accepts samples for persistence without blocking. Offer reports
// whether the sample was enqueued.
type Offerer interface {
	Offer(sample domain.GazeSample) bool
}

// Inbound wire envelope. Coordinates are pointers so a missing field can be
// told apart from zero.
type inboundMessage struct {
	Type    string        `json:"type"`
	Payload gazeSamplePayload `json:"payload"`
}

type gazeSamplePayload struct {
	GazeX         *float64 `json:"gaze_x"`
	GazeY         *float64 `json:"gaze_y"`
	PupilDiameter float64  `json:"pupil_diameter"`
	Source        string   `json:"source"`
	SessionID     string   `json:"session_id"`
}

// Pipeline processes inbound messages for one producer connection: it
// validates samples, updates the hub's latest-gaze cache, feeds the attention
// detector, and offers a throttled subset to the persistence queue. One
// Pipeline belongs to exactly one connection goroutine; it is not safe for
// concurrent use.
type Pipeline struct {
	streamID uuid.UUID
	hub      GazePublisher
	detector *gaze.Detector
	queue    Offerer
	throttle *rate.Limiter
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewPipeline creates the ingest pipeline for one producer stream.
// persistInterval bounds the durable write rate to at most one sample per
// interval; it is independent of the hub's flush interval. queue may be nil
// to disable persistence entirely.
func NewPipeline(streamID uuid.UUID, hub GazePublisher, detector *gaze.Detector, queue Offerer, persistInterval time.Duration, clock clockwork.Clock) *Pipeline {
	if persistInterval <= 0 {
		persistInterval = 100 * time.Millisecond
	}
	return &Pipeline{
		streamID: streamID,
		hub:      hub,
		detector: detector,
		queue:    queue,
		throttle: rate.NewLimiter(rate.Every(persistInterval), 1),
		clock:    clock,
		log:      slog.With("stream_id", streamID.String()),
	}
}

// HandleMessage parses and processes one inbound message. Malformed input is
// dropped here and never reaches detection, broadcast, or persistence.
// It reports whether a sample was accepted.
func (p *Pipeline) HandleMessage(data []byte) bool {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.SamplesRejectedTotal.WithLabelValues("unparseable").Inc()
		p.log.Debug("Dropping unparseable message", "error", err)
		return false
	}

	if msg.Type != messageTypeGazeSample {
		// Producers may send other message types; they are not ours to handle.
		metrics.SamplesRejectedTotal.WithLabelValues("unrecognized_type").Inc()
		return false
	}

	if msg.Payload.GazeX == nil || msg.Payload.GazeY == nil {
		metrics.SamplesRejectedTotal.WithLabelValues("missing_coordinates").Inc()
		p.log.Debug("Dropping sample with missing coordinates")
		return false
	}

	sample := domain.GazeSample{
		X:             *msg.Payload.GazeX,
		Y:             *msg.Payload.GazeY,
		PupilDiameter: msg.Payload.PupilDiameter,
		Source:        domain.ParseGazeSource(msg.Payload.Source),
		SessionID:     msg.Payload.SessionID,
		ReceivedAt:    p.clock.Now(),
	}

	if !sample.Valid() {
		metrics.SamplesRejectedTotal.WithLabelValues("non_finite").Inc()
		p.log.Debug("Dropping sample with non-finite coordinates")
		return false
	}

	p.process(sample)
	return true
}

func (p *Pipeline) process(sample domain.GazeSample) {
	metrics.SamplesIngestedTotal.WithLabelValues(string(sample.Source)).Inc()

	p.hub.PublishGaze(p.streamID, sample)
	p.detector.Observe(sample)

	if p.queue == nil {
		return
	}

	// Persistence is sampled: at most one durable write per interval, and
	// a full queue sheds the sample. Neither ever blocks the connection or
	// degrades detection and broadcast.
	if !p.throttle.Allow() {
		return
	}
	if !p.queue.Offer(sample) {
		p.log.Debug("Persistence queue full, sample shed")
	}
}
