// Package database provides the PostgreSQL-backed session and gaze stores.
package database
