package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

func TestPollUntilSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := pollUntil(context.Background(), "thing", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		attempts++
		return attempts >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestPollUntilTimeoutNamesResource(t *testing.T) {
	err := pollUntil(context.Background(), "backend branch login", time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errdefs.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "backend branch login") || !strings.Contains(got, "10ms") {
		t.Errorf("timeout error must name the resource and bound: %q", got)
	}
}

func TestPollUntilProbeErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	err := pollUntil(context.Background(), "thing", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		attempts++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected probe error to propagate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("hard probe errors must not be retried, got %d attempts", attempts)
	}
}

func TestPollUntilRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pollUntil(ctx, "thing", 10*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
