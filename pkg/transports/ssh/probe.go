package ssh

import (
	"context"
	"time"
)

// probeTimeout bounds a single reachability probe.
const probeTimeout = 10 * time.Second

// Probe checks whether the host accepts a non-interactive SSH session. It
// dials, runs a trivial command, and disconnects, all within a short bound.
// Used by readiness polling after instance creation and by the fleet status
// view.
func Probe(ctx context.Context, config *Config) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	probeConfig := *config
	probeConfig.ConnectTimeout = probeTimeout
	probeConfig.CommandTimeout = probeTimeout

	client, err := NewClient(&probeConfig)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	_, err = client.Execute(ctx, "true")
	return err
}
