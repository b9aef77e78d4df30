// Package limiter slows down repeated failed biometric logins per client.
// A failed face login carries no claimed identity, so attempts are tracked
// by hashed client address rather than by username.
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed login attempts and temporary lockouts per client.
type Limiter interface {
	// Allow reports whether a login attempt is currently permitted, with a
	// retry-after duration when it is not.
	Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters for the client.
	Success(ctx context.Context, ipHash []byte) error
	// Failure records a failed attempt; reports whether the client is now
	// blocked and for how long.
	Failure(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
}
