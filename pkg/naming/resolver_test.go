package naming

import (
	"context"
	"strings"
	"testing"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

func existsSet(names ...string) ExistsFunc {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(_ context.Context, name string) (bool, error) {
		return set[name], nil
	}
}

func TestResolveNoConflict(t *testing.T) {
	ctx := context.Background()

	for _, strategy := range []Strategy{StrategyFail, StrategySuffix} {
		final, err := Resolve(ctx, "demo", existsSet("other"), strategy)
		if err != nil {
			t.Fatalf("strategy %s: unexpected error: %v", strategy, err)
		}
		if final != "demo" {
			t.Errorf("strategy %s: got %q, want %q", strategy, final, "demo")
		}
	}
}

func TestResolveFailStrategy(t *testing.T) {
	ctx := context.Background()

	_, err := Resolve(ctx, "demo", existsSet("demo"), StrategyFail)
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if !errdefs.IsConflict(err) {
		t.Errorf("expected conflict classification, got: %v", err)
	}
}

func TestResolveSuffixStrategy(t *testing.T) {
	ctx := context.Background()

	var probed []string
	exists := func(_ context.Context, name string) (bool, error) {
		probed = append(probed, name)
		return name == "demo", nil
	}

	final, err := Resolve(ctx, "demo", exists, StrategySuffix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final == "demo" {
		t.Fatal("expected a suffixed name, got the original")
	}
	if !strings.HasPrefix(final, "demo-") {
		t.Errorf("suffixed name %q does not start with %q", final, "demo-")
	}
	// desired + "-" + 6 hex chars
	if len(final) != len("demo-")+suffixBytes*2 {
		t.Errorf("suffixed name %q has unexpected length", final)
	}
	if len(probed) != 2 {
		t.Errorf("expected exactly 2 existence probes, got %d (%v)", len(probed), probed)
	}
}

func TestResolveSuffixCollision(t *testing.T) {
	ctx := context.Background()

	// Everything exists, including the derived candidate. The resolver must
	// terminate with a conflict instead of retrying forever.
	exists := func(_ context.Context, name string) (bool, error) {
		return true, nil
	}

	_, err := Resolve(ctx, "demo", exists, StrategySuffix)
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if !errdefs.IsConflict(err) {
		t.Errorf("expected conflict classification, got: %v", err)
	}
}

func TestResolveUnknownStrategy(t *testing.T) {
	ctx := context.Background()

	_, err := Resolve(ctx, "demo", existsSet("demo"), Strategy("bogus"))
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if !errdefs.IsConfiguration(err) {
		t.Errorf("expected configuration classification, got: %v", err)
	}
}
