// Package naming decides fail-vs-rename behavior when a desired resource name
// already exists at a provider. Each provider has its own namespace, so the
// resolver is invoked independently per provider.
package naming

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

// Strategy selects how an existing name is handled.
type Strategy string

const (
	// StrategyFail raises a conflict error when the desired name exists.
	StrategyFail Strategy = "fail"

	// StrategySuffix derives a unique alternate name by appending a short
	// random suffix. The suffixed name is probed once; a collision on the
	// suffixed name is treated as an error rather than retried, which
	// guarantees termination.
	StrategySuffix Strategy = "suffix"
)

// suffixBytes is the number of random bytes in a derived suffix, rendered as
// twice as many hex characters.
const suffixBytes = 3

// ExistsFunc probes a provider namespace for a name. It must have no side
// effects beyond the existence check.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// Resolve returns a final name for the desired name under the given strategy.
// The returned name is guaranteed not to exist at the provider at probe time.
func Resolve(ctx context.Context, desired string, exists ExistsFunc, strategy Strategy) (string, error) {
	taken, err := exists(ctx, desired)
	if err != nil {
		return "", errdefs.NewProviderError(fmt.Sprintf("existence check for %q failed", desired), err)
	}
	if !taken {
		return desired, nil
	}

	switch strategy {
	case StrategyFail:
		return "", errdefs.NewConflictError(fmt.Sprintf("name %q already exists", desired), nil)
	case StrategySuffix:
		candidate := desired + "-" + randomSuffix()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", errdefs.NewProviderError(fmt.Sprintf("existence check for %q failed", candidate), err)
		}
		if taken {
			return "", errdefs.NewConflictError(fmt.Sprintf("derived name %q already exists", candidate), nil)
		}
		return candidate, nil
	default:
		return "", errdefs.NewConfigurationError(fmt.Sprintf("unknown conflict strategy %q", strategy), nil)
	}
}

// randomSuffix returns a short, provider-namespace-safe random suffix.
func randomSuffix() string {
	buf := make([]byte, suffixBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
