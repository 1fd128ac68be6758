package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// WaitForInterrupt blocks until SIGINT or SIGTERM.
func WaitForInterrupt() {
	waitForInterruptContext(context.Background(), nil)
}

// WaitForInterruptWithCallback blocks until SIGINT, SIGTERM or ctx is done,
// then runs callback.
func WaitForInterruptWithCallback(ctx context.Context, callback func()) {
	waitForInterruptContext(ctx, callback)
}

// waitForInterruptContext allows tests to inject a context that can be cancelled without real OS signals.
func waitForInterruptContext(parent context.Context, callback func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.ApplicationLogger().Info("Received interrupt; executing shutdown callback")

	if callback != nil {
		callback()
	}
}
