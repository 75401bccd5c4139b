// Package health probes the external stores the server depends on.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
)

// Checker is the interface for a Health Checker
type Checker interface {
	// Check returns nil if the service is okay.
	Check(ctx context.Context) error
}

// CheckFunc is a convenience type to create functions that implement
// the Checker interface
type CheckFunc func(ctx context.Context) error

func (cf CheckFunc) Check(ctx context.Context) error {
	return cf(ctx)
}

// BoolCheck adapts a probe that only reports availability.
func BoolCheck(f func(ctx context.Context) bool) CheckFunc {
	return func(ctx context.Context) error {
		if !f(ctx) {
			return fmt.Errorf("unavailable")
		}
		return nil
	}
}

// Probe runs c with a deadline of timeout and returns the elapsed time in
// seconds, or common.NotAvailable when the check fails, panics or does not
// finish in time. It never returns an error.
func Probe(ctx context.Context, c Checker, timeout time.Duration) any {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("check panicked: %v", r)
			}
		}()
		done <- c.Check(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return common.NotAvailable
		}
		return time.Since(start).Seconds()
	case <-ctx.Done():
		return common.NotAvailable
	}
}
