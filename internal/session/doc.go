// Package session resolves which tracking session gaze data belongs to.
package session
