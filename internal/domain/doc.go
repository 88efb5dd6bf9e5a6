// Package domain holds the core model types and the interfaces that connect
// the gaze pipeline to its collaborators (session store, gaze persistence,
// broadcast). No package in this module depends on anything but domain and
// the standard library to describe its contracts.
package domain
