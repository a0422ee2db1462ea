package engineports

import "context"

// RateLimiter throttles gateway submissions per call session.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
