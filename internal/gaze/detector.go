package gaze

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
	"github.com/jonboulle/clockwork"
)

// State is the attention classification of a stream.
type State string

const (
	StateNoHistory State = "no-history"
	StateFixating  State = "fixating"
	StateDrifting  State = "drifting"
	StateAlerting  State = "alerting"
)

// Config holds the detection thresholds. Zero values are replaced with the
// defaults below.
type Config struct {
	RingSize           int
	FixationThreshold  float64 // pixels
	LostFocusThreshold time.Duration
	AlertCooldown      time.Duration
}

const (
	defaultRingSize           = 20
	defaultFixationThreshold  = 40.0
	defaultLostFocusThreshold = 3 * time.Second
	defaultAlertCooldown      = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.RingSize < 2 {
		c.RingSize = defaultRingSize
	}
	if c.FixationThreshold <= 0 {
		c.FixationThreshold = defaultFixationThreshold
	}
	if c.LostFocusThreshold <= 0 {
		c.LostFocusThreshold = defaultLostFocusThreshold
	}
	if c.AlertCooldown <= 0 {
		c.AlertCooldown = defaultAlertCooldown
	}
	return c
}

// reengagementPrompts is the fixed pool of user-facing alert messages. One is
// chosen at random per alert so repeated alerts do not read identically.
var reengagementPrompts = []string{
	"You seem distracted — take a breath and refocus on the article.",
	"Eyes wandering? The next paragraph might surprise you.",
	"Still with us? Pick up where you left off.",
	"Your attention drifted. Jump back in when you're ready.",
	"Looks like you looked away. The article is waiting.",
}

type ringEntry struct {
	x, y float64
}

// Detector classifies a single producer stream as fixating or drifting and
// emits cooldown-gated attention alerts. It owns a fixed-capacity ring of the
// most recent samples; state lives and dies with the producer connection, so
// no locking is needed because one goroutine reads from the connection and
// feeds the detector sequentially.
type Detector struct {
	cfg       Config
	clock     clockwork.Clock
	publisher domain.AlertPublisher

	ring  []ringEntry
	next  int
	count int

	state        State
	lastFixation time.Time
	lastAlert    time.Time
}

// NewDetector creates a detector for one producer stream. publisher receives
// alert events; it may be nil, in which case alerts are classified but not
// delivered anywhere.
func NewDetector(cfg Config, publisher domain.AlertPublisher, clock clockwork.Clock) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:       cfg,
		clock:     clock,
		publisher: publisher,
		ring:      make([]ringEntry, cfg.RingSize),
		state:     StateNoHistory,
		// Until the window fills there is no evidence of drift, so the
		// lost-focus timer starts counting from stream start.
		lastFixation: clock.Now(),
	}
}

// State returns the current classification of the stream.
func (d *Detector) State() State {
	return d.state
}

// Observe pushes one accepted sample into the ring and reclassifies the
// stream. The caller must have validated the sample already; coordinates are
// assumed finite.
func (d *Detector) Observe(sample domain.GazeSample) State {
	d.ring[d.next] = ringEntry{x: sample.X, y: sample.Y}
	d.next = (d.next + 1) % d.cfg.RingSize
	if d.count < d.cfg.RingSize {
		d.count++
	}
	if d.count < d.cfg.RingSize {
		// Fewer than RingSize samples: no classification is possible yet.
		d.state = StateNoHistory
		return d.state
	}

	// With the ring full, the slot the cursor now points at holds the oldest
	// stored sample, the one sitting at the window boundary.
	boundary := d.ring[d.next]
	now := d.clock.Now()
	if distance(sample.X, sample.Y, boundary.x, boundary.y) < d.cfg.FixationThreshold {
		d.state = StateFixating
		d.lastFixation = now
		return d.state
	}

	if now.Sub(d.lastFixation) <= d.cfg.LostFocusThreshold {
		// Movement, but not yet long enough to count as lost focus.
		return d.state
	}

	d.state = StateDrifting
	if now.Sub(d.lastAlert) <= d.cfg.AlertCooldown {
		metrics.DriftEvaluationsTotal.WithLabelValues("cooldown").Inc()
		return d.state
	}

	d.state = StateAlerting
	d.lastAlert = now
	metrics.DriftEvaluationsTotal.WithLabelValues("alerted").Inc()
	metrics.AlertsEmittedTotal.Inc()
	if d.publisher != nil {
		d.publisher.PublishAlert(domain.AlertEvent{
			Message:   reengagementPrompts[rand.IntN(len(reengagementPrompts))],
			EmittedAt: now,
		})
	}
	return d.state
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
