package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/gaze"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/ingest"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Producers and dashboards connect from other origins
	},
}

// handleGazeCollector serves producer connections. Each connection gets its
// own attention detector and ingest pipeline; detector state never leaks
// between producers.
func (s *Server) handleGazeCollector(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade producer WebSocket", "error", err)
		return nil
	}
	defer conn.Close()

	streamID := uuid.New()
	log := slog.With("stream_id", streamID.String())

	metrics.ProducersConnected.Inc()
	defer metrics.ProducersConnected.Dec()
	log.Info("Producer connected")

	detector := gaze.NewDetector(gaze.Config{
		RingSize:           s.config.RingSize,
		FixationThreshold:  s.config.FixationThresholdPx,
		LostFocusThreshold: s.config.LostFocusThreshold,
		AlertCooldown:      s.config.AlertCooldown,
	}, s.hub, s.clock)
	pipeline := ingest.NewPipeline(streamID, s.hub, detector, s.queue, s.config.PersistInterval, s.clock)

	// Read pump (blocks until disconnect)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		pipeline.HandleMessage(data)
	}

	s.hub.DropStream(streamID)
	log.Info("Producer disconnected")
	return nil
}

// handleEyeTracking serves subscriber connections. Subscribers only listen;
// inbound frames are drained and discarded.
func (s *Server) handleEyeTracking(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade subscriber WebSocket", "error", err)
		return nil
	}

	if err := s.hub.Subscribe(conn); err != nil {
		slog.Warn("Subscriber rejected", "error", err)
		// Connection already closed by the hub on rejection
		return nil
	}

	// Read pump (blocks until disconnect)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unsubscribe(conn)
	return nil
}
