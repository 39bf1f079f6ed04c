// Package signal ties interrupts to contexts so Ctrl-C cancels the
// request in flight instead of killing the process.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext returns a copy of parent that is cancelled on SIGINT or
// SIGTERM. Call stop once the guarded work is done so the next interrupt
// reaches the default handler again.
func NotifyContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
