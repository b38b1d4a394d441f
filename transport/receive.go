// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/gamehub/lib/clock"
)

// ReceiveConfig controls the idle backoff of [Receive].
type ReceiveConfig struct {
	// Clock drives the idle sleep. Required.
	Clock clock.Clock

	// Interval is the first idle sleep after an empty poll.
	Interval time.Duration

	// MaxInterval caps the doubling backoff.
	MaxInterval time.Duration

	Logger *slog.Logger
}

// Receive polls local until ctx is cancelled and calls handle once for
// every message, in arrival order. While the address stays empty the
// loop sleeps, doubling from Interval up to MaxInterval; any message
// resets the backoff. Poll errors are logged and treated as empty.
//
// Returns nil when ctx is cancelled.
func Receive(ctx context.Context, bus Transport, local Address, config ReceiveConfig, handle func([]byte)) error {
	interval := config.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	maxInterval := max(config.MaxInterval, interval)
	backoff := interval

	for {
		if ctx.Err() != nil {
			return nil
		}

		messages, err := bus.PollRecv(local)
		if err != nil {
			config.Logger.Warn("transport poll failed", "address", local, "error", err)
		}

		if len(messages) > 0 {
			backoff = interval
			for _, message := range messages {
				handle(message)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-config.Clock.After(backoff):
		}
		backoff = min(backoff*2, maxInterval)
	}
}
