package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext is cancelled by SIGINT or SIGTERM. A batch run in flight
// saves its checkpoint and returns once it sees the cancellation.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
