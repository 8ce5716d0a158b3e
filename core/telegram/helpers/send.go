package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/dirbot/core/logger"
	"github.com/m3rciful/dirbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// A nil dispatcher makes every helper call synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Enqueue runs fn on the dispatcher, or inline when none is set or its
// queue cannot take the job.
func Enqueue(ctx context.Context, action, endpoint string, fn func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return fn()
	}
	if err := disp.Enqueue(ctx, action, endpoint, fn); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return fn()
		}
		return err
	}
	return nil
}
