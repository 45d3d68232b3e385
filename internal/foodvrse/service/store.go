package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/logger"
)

// storeCaller bounds every storage call by a timeout and retries it once
// when it fails for a transient reason.
type storeCaller struct {
	timeout time.Duration
	log     *logger.Logger
}

func (c storeCaller) call(ctx context.Context, op string, retryable bool, fn func(ctx context.Context) error) error {
	err := c.attempt(ctx, fn)
	if err == nil || !retryable || ctx.Err() != nil || !isTransient(err) {
		return err
	}
	c.log.Warn("retrying storage call", "op", op, "error", err)
	return c.attempt(ctx, fn)
}

func (c storeCaller) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(callCtx)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
