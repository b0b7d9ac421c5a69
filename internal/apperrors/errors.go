// Package apperrors holds the error classes shared across the realtime
// core. Package-local failures keep their own sentinels; these are the
// ones handlers map to responses regardless of where they originate.
package apperrors

import "errors"

var (
	// ErrUnauthenticated: the operation requires a signed-in actor.
	// Checked locally, before any network round trip.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotConnected: no live external-store handle. Also checked
	// locally.
	ErrNotConnected = errors.New("not connected")

	// ErrRemoteWriteFailed: the store rejected or failed a write during
	// an optimistic operation. Recoverable; the caller may retry the
	// same operation. The local rollback has already happened by the
	// time this is returned.
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrNavigationTargetMissing: a notification's entity could not be
	// resolved to a concrete target.
	ErrNavigationTargetMissing = errors.New("navigation target missing")
)
