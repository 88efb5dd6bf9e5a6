package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	defaultFlushInterval = 50 * time.Millisecond
	commandTimeout       = 5 * time.Second
	stopTimeout          = 10 * time.Second
)

// Outbound wire messages.

type gazePayload struct {
	GazeX         float64 `json:"gaze_x"`
	GazeY         float64 `json:"gaze_y"`
	PupilDiameter float64 `json:"pupil_diameter"`
	Source        string  `json:"source"`
	SessionID     string  `json:"session_id,omitempty"`
}

type outboundMessage struct {
	Type    string       `json:"type"`
	Payload *gazePayload `json:"payload,omitempty"`
	Message string       `json:"message,omitempty"`
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type subscribeCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unsubscribeCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type publishGazeCmd struct {
	baseHubCmd
	streamID uuid.UUID
	sample   domain.GazeSample
}

type publishAlertCmd struct {
	baseHubCmd
	event domain.AlertEvent
}

type dropStreamCmd struct {
	baseHubCmd
	streamID uuid.UUID
}

type subscriberCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub fans gaze updates and attention alerts out to every subscribed
// connection. Producers record the latest gaze per stream at whatever rate
// they arrive; a fixed-interval ticker flushes changed streams to
// subscribers, decoupling fan-out rate from producer sampling rate. Alerts
// bypass the ticker and go out immediately.
type Hub struct {
	cmdCh          chan hubCmd
	clock          clockwork.Clock
	subscribers    map[*websocket.Conn]*clientWriter
	latest         map[uuid.UUID]domain.GazeSample
	dirty          map[uuid.UUID]struct{}
	maxSubscribers int
	flushInterval  time.Duration
	done           chan struct{}
}

// NewHub creates the hub and starts its actor goroutine.
// maxSubscribers limits concurrent subscriber connections (0 means no limit).
// flushInterval controls how often changed gaze state is flushed; 0 uses the
// 50 ms default.
func NewHub(clock clockwork.Clock, maxSubscribers int, flushInterval time.Duration) *Hub {
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	h := &Hub{
		cmdCh:          make(chan hubCmd, 256),
		clock:          clock,
		subscribers:    make(map[*websocket.Conn]*clientWriter),
		latest:         make(map[uuid.UUID]domain.GazeSample),
		dirty:          make(map[uuid.UUID]struct{}),
		maxSubscribers: maxSubscribers,
		flushInterval:  flushInterval,
		done:           make(chan struct{}),
	}
	go h.run()
	return h
}

// Subscribe adds a connection to the broadcast group. Returns an error only
// if the subscriber limit is reached or the hub is shutting down.
func (h *Hub) Subscribe(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- subscribeCmd{connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes a connection from the broadcast group. Idempotent.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.cmdCh <- unsubscribeCmd{connection: conn}
}

// PublishGaze records the latest known gaze for a producer stream. It does
// not push to subscribers; the periodic flush does.
func (h *Hub) PublishGaze(streamID uuid.UUID, sample domain.GazeSample) {
	h.cmdCh <- publishGazeCmd{streamID: streamID, sample: sample}
}

// PublishAlert pushes an attention alert to all subscribers immediately.
// Alerts are rare and latency-sensitive, so there is no coalescing.
func (h *Hub) PublishAlert(event domain.AlertEvent) {
	h.cmdCh <- publishAlertCmd{event: event}
}

// DropStream discards the cached gaze state for a disconnected producer.
func (h *Hub) DropStream(streamID uuid.UUID) {
	h.cmdCh <- dropStreamCmd{streamID: streamID}
}

// SubscriberCount returns the number of connected subscribers, or -1 if the
// command times out.
func (h *Hub) SubscriberCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- subscriberCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("SubscriberCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all subscriber connections. Blocks until
// the actor goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", stopTimeout)
		close(h.done)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllSubscribers("hub panic")
		}
	}()

	ticker := h.clock.NewTicker(h.flushInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case subscribeCmd:
				h.handleSubscribe(c)
			case unsubscribeCmd:
				h.handleUnsubscribe(c.connection)
			case publishGazeCmd:
				h.latest[c.streamID] = c.sample
				h.dirty[c.streamID] = struct{}{}
			case publishAlertCmd:
				h.handleAlert(c.event)
			case dropStreamCmd:
				delete(h.latest, c.streamID)
				delete(h.dirty, c.streamID)
			case subscriberCountCmd:
				c.replyChannel <- len(h.subscribers)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-ticker.Chan():
			h.handleFlush()
		}
	}
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	if h.maxSubscribers > 0 && len(h.subscribers) >= h.maxSubscribers {
		slog.Warn("Rejecting subscriber: max subscribers reached", "max_subscribers", h.maxSubscribers)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max subscribers (%d) reached", h.maxSubscribers)
		return
	}

	if _, exists := h.subscribers[c.connection]; exists {
		c.errorChannel <- nil
		return
	}

	h.subscribers[c.connection] = newClientWriter(c.connection, h.clock)
	metrics.HubSubscribers.Set(float64(len(h.subscribers)))
	slog.Debug("Subscriber registered", "total_subscribers", len(h.subscribers))
	c.errorChannel <- nil
}

func (h *Hub) handleUnsubscribe(conn *websocket.Conn) {
	cw, exists := h.subscribers[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.subscribers, conn)
	metrics.HubSubscribers.Set(float64(len(h.subscribers)))
	slog.Debug("Subscriber unregistered", "remaining_subscribers", len(h.subscribers))
}

func (h *Hub) handleFlush() {
	if len(h.dirty) == 0 || len(h.subscribers) == 0 {
		// Nothing changed since the last flush, or nobody listening yet.
		// Pending state stays dirty until a subscriber can receive it.
		return
	}

	for streamID := range h.dirty {
		sample, ok := h.latest[streamID]
		if !ok {
			continue
		}

		data, err := json.Marshal(outboundMessage{
			Type: "gaze-update",
			Payload: &gazePayload{
				GazeX:         sample.X,
				GazeY:         sample.Y,
				PupilDiameter: sample.PupilDiameter,
				Source:        string(sample.Source),
				SessionID:     sample.SessionID,
			},
		})
		if err != nil {
			slog.Error("Failed to marshal gaze update", "error", err)
			continue
		}

		h.deliver(data)
	}

	clear(h.dirty)
	metrics.HubFlushesTotal.Inc()
}

func (h *Hub) handleAlert(event domain.AlertEvent) {
	data, err := json.Marshal(outboundMessage{
		Type:    "attention-alert",
		Message: event.Message,
	})
	if err != nil {
		slog.Error("Failed to marshal attention alert", "error", err)
		return
	}

	h.deliver(data)
	metrics.HubAlertsBroadcastTotal.Inc()
	slog.Info("Attention alert broadcast", "message", event.Message, "subscribers", len(h.subscribers))
}

// deliver pushes data to every subscriber without blocking. Subscribers whose
// send buffers are full are evicted so one stuck connection never stalls
// delivery to the rest.
func (h *Hub) deliver(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.subscribers {
		select {
		case cw.sendChannel <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber")
		metrics.HubSlowSubscribersEvicted.Inc()
		h.handleUnsubscribe(conn)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "subscribers", len(h.subscribers))
	h.closeAllSubscribers("Server shutting down")
}

func (h *Hub) closeAllSubscribers(reason string) {
	for conn, cw := range h.subscribers {
		cw.stopGraceful(reason)
		delete(h.subscribers, conn)
	}
	metrics.HubSubscribers.Set(0)
}
