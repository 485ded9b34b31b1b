// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit paces calls to the external provider. Callers hold a
// Limiter and Wait on it before each call, so pacing policy can change
// without touching the loops that make the calls.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call is allowed or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Every returns a token-bucket Limiter that admits one call immediately
// and then at most one call per interval. A non-positive interval admits
// every call.
func Every(interval time.Duration) Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Burst returns a token-bucket Limiter refilling one token per interval
// with room for burst calls back to back.
func Burst(interval time.Duration, burst int) Limiter {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(interval), burst)
}
