package engine

import (
	"context"
	"time"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

// pollUntil probes at a fixed interval until the probe reports done, the
// probe fails hard, or the overall timeout elapses. Every readiness check in
// the engine (compute, backend branch, hosting alias) goes through here so
// timeout behavior is uniform: the timeout error names the resource and the
// elapsed bound.
func pollUntil(ctx context.Context, resource string, interval, timeout time.Duration, probe func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return errdefs.NewTimeoutError(resource, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
