// Package gaze implements per-stream attention detection: a fixed-size ring
// of recent samples, fixation classification by window-boundary distance, and
// cooldown-gated attention-loss alerts.
//
// Detection is a heuristic. The contract is on threshold and cooldown
// behavior, not on ground-truth accuracy near the boundary.
package gaze
