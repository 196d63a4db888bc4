// Package poll implements the synchronization clients. There is no push
// channel anywhere in the system: all state changes propagate through the
// store, and these pollers re-read it on a fixed interval and diff against
// local state. Visibility guarantee is "within one polling interval",
// nothing stronger.
package poll

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultHostInterval paces the host's submission/roster poll.
	DefaultHostInterval = 3 * time.Second
	// DefaultPlayerInterval paces the player's room poll.
	DefaultPlayerInterval = 2 * time.Second
)

// runTicks drives a cooperative polling loop until ctx is cancelled. The
// loop is the retry: a failed tick is logged and the next tick runs anyway.
// Callers own the ctx and must cancel it when the consuming view goes away,
// otherwise the loop leaks and keeps performing stale reads and writes.
func runTicks(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) {
	if err := tick(ctx); err != nil && ctx.Err() == nil {
		log.Printf("%s poll tick: %v", name, err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tick(ctx); err != nil && ctx.Err() == nil {
				log.Printf("%s poll tick: %v", name, err)
			}
		}
	}
}
