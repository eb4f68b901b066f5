package resilience

import (
	"context"
	"fmt"
	"time"
)

// ReconnectConfig holds configuration for reconnection logic.
// The caption stream uses a fixed delay between attempts, not an
// exponential backoff: reconnects happen while a user is actively
// recording, so waiting longer and longer only loses more audio.
type ReconnectConfig struct {
	MaxAttempts int           // Maximum number of reconnection attempts
	Delay       time.Duration // Fixed delay between attempts
}

// DefaultReconnectConfig returns a default reconnection configuration
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// ReconnectFunc is a function that attempts to reconnect
type ReconnectFunc func() error

// OnAttemptFunc is invoked before each reconnection attempt with the
// 1-based attempt number
type OnAttemptFunc func(attempt int)

// Reconnect attempts to reconnect at a fixed delay. It returns the number
// of attempts consumed along with the final error (nil on success). The
// caller owns any cross-closure attempt accounting; Reconnect only runs a
// single bounded loop.
func Reconnect(ctx context.Context, fn ReconnectFunc, config *ReconnectConfig, onAttempt OnAttemptFunc) (int, error) {
	if config == nil {
		config = DefaultReconnectConfig()
	}

	attempts := 0
	for attempts < config.MaxAttempts {
		// Wait out the fixed delay first: the transport just dropped, an
		// immediate redial usually hits the same fault.
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(config.Delay):
		}

		attempts++
		if onAttempt != nil {
			onAttempt(attempts)
		}

		if err := fn(); err == nil {
			return attempts, nil
		}
	}

	return attempts, fmt.Errorf("failed to reconnect after %d attempts", attempts)
}
