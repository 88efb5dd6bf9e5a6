// Package server exposes the HTTP surface: the session management API, the
// producer and subscriber WebSocket endpoints, and observability routes.
package server
