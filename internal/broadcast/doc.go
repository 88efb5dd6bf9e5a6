// Package broadcast fans gaze updates and attention alerts out to subscriber
// WebSocket connections.
//
// The Hub is a single actor goroutine owning the subscriber set and the
// per-stream latest-gaze cache; all access goes through its command channel.
// A fixed-interval ticker flushes changed gaze state, bounding outbound
// message rate regardless of how fast producers sample. Each subscriber gets
// a dedicated writer goroutine with a bounded buffer; subscribers that cannot
// keep up are evicted rather than allowed to stall the flush.
package broadcast
