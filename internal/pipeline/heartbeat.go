package pipeline

import (
	"context"
	"time"
)

// startHeartbeat emits a periodic liveness status event until the returned
// stop function is called. Stop blocks until the ticker goroutine has
// exited, so no heartbeat can fire after stop returns.
func startHeartbeat(ctx context.Context, emit Emitter, interval time.Duration, message string) (stop func()) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	keepaliveStop := make(chan struct{})
	keepaliveDone := make(chan struct{})
	go func() {
		defer close(keepaliveDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				emit(Event{Type: EventStatus, Message: message})
			case <-keepaliveStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		close(keepaliveStop)
		<-keepaliveDone
	}
}
