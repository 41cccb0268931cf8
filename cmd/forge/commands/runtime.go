package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/launchforge/launchforge/pkg/config"
	"github.com/launchforge/launchforge/pkg/confirm"
	"github.com/launchforge/launchforge/pkg/engine"
	"github.com/launchforge/launchforge/pkg/errdefs"
	"github.com/launchforge/launchforge/pkg/providers"
	"github.com/launchforge/launchforge/pkg/providers/backend"
	"github.com/launchforge/launchforge/pkg/providers/compute"
	"github.com/launchforge/launchforge/pkg/providers/hosting"
	"github.com/launchforge/launchforge/pkg/providers/repohost"
	"github.com/launchforge/launchforge/pkg/secrets"
	"github.com/launchforge/launchforge/pkg/stores"
	"github.com/launchforge/launchforge/pkg/telemetry"
)

// runtime wires configuration, credentials, adapters, and the engine for one
// command invocation. Credential resolution happens here, before any provider
// call, so a missing credential fails fast as a configuration error.
type runtime struct {
	cfg       *config.Config
	projects  *stores.ProjectStore
	instances *stores.InstanceStore
	gate      *confirm.Gate
	pipeline  *engine.Pipeline
	lifecycle *engine.Lifecycle
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	resolver := secrets.NewResolver()
	creds, err := resolver.ResolveAll(
		secrets.RepoHostToken,
		secrets.BackendToken,
		secrets.HostingToken,
		secrets.ComputeToken,
	)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics()
	runner := &metricsRunner{next: providers.NewExecRunner(), metrics: metrics}
	repos := repohost.New(runner, cfg.RepoHost.Owner, creds[secrets.RepoHostToken.Name])
	backends := backend.New(runner, creds[secrets.BackendToken.Name])
	hostings := hosting.New(runner, cfg.Hosting.Team, creds[secrets.HostingToken.Name])
	computes := compute.New(creds[secrets.ComputeToken.Name], compute.Settings{
		Region:            cfg.Compute.Region,
		Size:              cfg.Compute.Size,
		Image:             cfg.Compute.Image,
		SSHKeyFingerprint: cfg.Compute.SSHKeyFingerprint,
	})
	shell := engine.NewShell(cfg.Compute.SSHUser, cfg.Compute.SSHKeyPath)

	projects := stores.NewProjectStore(cfg.ProjectStorePath())
	instances := stores.NewInstanceStore(cfg.InstanceStorePath())

	return &runtime{
		cfg:       cfg,
		projects:  projects,
		instances: instances,
		gate:      confirm.NewGate(cfg.ConfirmationStorePath()),
		pipeline:  engine.NewPipeline(cfg, repos, backends, hostings, projects, metrics),
		lifecycle: engine.NewLifecycle(cfg, repos, backends, hostings, computes, shell, projects, instances, metrics),
	}, nil
}

// metricsRunner decorates a Runner with per-call metrics, labeled by the
// provider CLI being invoked.
type metricsRunner struct {
	next    providers.Runner
	metrics *telemetry.Metrics
}

func (r *metricsRunner) Run(ctx context.Context, name string, args []string, opts providers.RunOptions) (*providers.RunResult, error) {
	start := time.Now()
	result, err := r.next.Run(ctx, name, args, opts)
	r.metrics.ObserveProviderCall(name, time.Since(start), err)
	return result, err
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// reportError prints what failed and, when automatic recovery is not
// possible, the literal manual command to finish the job.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if hint := errdefs.Hint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "  run: %s\n", hint)
	}
}
