package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/launchforge/launchforge/pkg/config"
	"github.com/launchforge/launchforge/pkg/errdefs"
	"github.com/launchforge/launchforge/pkg/stores"
	"github.com/launchforge/launchforge/pkg/telemetry"
	"github.com/launchforge/launchforge/pkg/transports/ssh"
)

// remoteWorkDir is where the repository is cloned on a compute instance.
const remoteWorkDir = "/root/app"

// remoteEnvFile is where the patched environment lands on the instance.
const remoteEnvFile = "/root/launchforge.env"

// BranchResult is the per-branch outcome of a destroy sequence. Cleanup is
// best-effort and never silently partial, so every branch's outcome is
// collected instead of aborting on the first failure.
type BranchResult struct {
	Name string
	Err  error
}

// DestroySummary reports the outcome of destroying one compute instance.
type DestroySummary struct {
	Branches      []BranchResult
	InstanceErr   error
	RecordRemoved bool
}

// Failed returns the branches whose teardown failed.
func (s *DestroySummary) Failed() []BranchResult {
	var out []BranchResult
	for _, b := range s.Branches {
		if b.Err != nil {
			out = append(out, b)
		}
	}
	return out
}

// ResourceResult is the per-resource outcome of a project destroy.
type ResourceResult struct {
	Resource string
	Err      error
}

// ProjectDestroySummary reports the outcome of destroying a whole project.
type ProjectDestroySummary struct {
	Resources     []ResourceResult
	RecordRemoved bool
	NextSteps     []string
}

// Lifecycle creates and destroys ephemeral compute instances bound to a
// project and feature, together with their repository and backend branches.
type Lifecycle struct {
	cfg       *config.Config
	repos     RepoHost
	backends  Backend
	hostings  Hosting
	computes  Compute
	shell     Shell
	projects  *stores.ProjectStore
	instances *stores.InstanceStore
	metrics   *telemetry.Metrics

	now func() time.Time
}

// NewLifecycle creates a lifecycle manager.
func NewLifecycle(cfg *config.Config, repos RepoHost, backends Backend, hostings Hosting, computes Compute, shell Shell, projects *stores.ProjectStore, instances *stores.InstanceStore, metrics *telemetry.Metrics) *Lifecycle {
	return &Lifecycle{
		cfg:       cfg,
		repos:     repos,
		backends:  backends,
		hostings:  hostings,
		computes:  computes,
		shell:     shell,
		projects:  projects,
		instances: instances,
		metrics:   metrics,
		now:       time.Now,
	}
}

// CreateFeature provisions a compute instance for a feature of a project: a
// droplet ready for SSH, a repository branch, backend sub-environments, and a
// patched environment on the instance. Any failure after the droplet exists
// triggers best-effort rollback of the droplet.
func (l *Lifecycle) CreateFeature(ctx context.Context, projectName, feature, dir, prompt string) (*stores.ComputeInstance, error) {
	project, ok, err := l.projects.Get(projectName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errdefs.NewNotFoundError(fmt.Sprintf("no project named %q", projectName)).
			WithHint("forge status")
	}
	if existing, found, err := l.instances.FindByFeature(projectName, feature); err != nil {
		return nil, err
	} else if found {
		return nil, errdefs.NewConflictError(
			fmt.Sprintf("feature %q already has instance %s", feature, existing.Name), nil).
			WithHint(fmt.Sprintf("forge clean %s --project %s", feature, projectName))
	}

	name := fmt.Sprintf("forge-%s-%s", feature, uuid.NewString()[:8])
	inst, err := l.computes.Create(ctx, name)
	if err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to create compute instance %q", name), err).
			WithProvider("compute").WithStep("compute")
	}
	log.Info().Str("instance", inst.Name).Int("id", inst.ID).Msg("compute instance created")

	record, err := l.configureInstance(ctx, &project, inst.ID, inst.Name, feature, dir, prompt)
	if err != nil {
		l.rollback(ctx, inst.ID, inst.Name)
		return nil, err
	}

	if err := l.instances.Save(*record); err != nil {
		l.rollback(ctx, inst.ID, inst.Name)
		return nil, err
	}
	log.Info().Str("instance", record.Name).Str("host", record.RemoteHost).Msg("feature environment ready")
	return record, nil
}

// configureInstance runs everything between droplet creation and record
// persistence. Split out so CreateFeature has a single rollback point.
func (l *Lifecycle) configureInstance(ctx context.Context, project *stores.Project, id int, name, feature, dir, prompt string) (*stores.ComputeInstance, error) {
	host, err := l.waitReady(ctx, id, name)
	if err != nil {
		return nil, err
	}

	// Port exposure failing should not cost the operator the whole instance.
	if err := l.computes.ExposePorts(ctx, id, l.cfg.Compute.ExposedPorts); err != nil {
		log.Warn().Err(err).
			Str("hint", fmt.Sprintf("open them manually: doctl compute firewall create --name launchforge-%d --droplet-ids %d", id, id)).
			Msg("port exposure failed, instance remains reachable over SSH only")
	}

	transport, err := l.shell.Open(ctx, host)
	if err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to open shell to %s", host), err).
			WithProvider("compute").WithStep("shell")
	}
	defer transport.Disconnect()

	// Seed the instance with the project's local environment before setup so
	// the clone and install already see it. The merged, instance-patched
	// version replaces it later.
	if local := filepath.Join(dir, localEnvFile); fileExists(local) {
		if err := transport.UploadFile(ctx, local, remoteEnvFile, 0o600); err != nil {
			return nil, errdefs.NewProviderError("failed to push local configuration to instance", err).
				WithProvider("compute").WithStep("configuration")
		}
	}

	setupCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeouts.RemoteSetup)
	defer cancel()
	if res, err := transport.Execute(setupCtx, setupCommand(project.Repository.URL)); err != nil {
		msg := "remote setup failed"
		if res != nil && res.Stderr != "" {
			msg = fmt.Sprintf("remote setup failed: %s", res.StderrTail(20))
		}
		return nil, errdefs.NewProviderError(msg, err).WithProvider("compute").WithStep("setup")
	}

	branch := "feature/" + feature
	checkout := fmt.Sprintf("cd %s && git checkout -b %s origin/%s", remoteWorkDir, branch, l.cfg.RepoHost.DefaultBranch)
	if _, err := transport.Execute(ctx, checkout); err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to create branch %s", branch), err).
			WithProvider("repohost").WithStep("branch")
	}

	backendBranches := []string{feature, feature + "-test"}
	for _, b := range backendBranches {
		if err := l.createBackendBranch(ctx, project.Backend.ProjectRef, b); err != nil {
			return nil, err
		}
	}

	if err := l.pushEnvironment(ctx, transport, dir, host, feature); err != nil {
		return nil, err
	}

	push := fmt.Sprintf("cd %s && git push -u origin %s", remoteWorkDir, branch)
	if _, err := transport.Execute(ctx, push); err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to push branch %s", branch), err).
			WithProvider("repohost").WithStep("branch")
	}

	record := &stores.ComputeInstance{
		Name:             name,
		RemoteHost:       host,
		Project:          project.Name,
		Feature:          feature,
		CreatedAt:        l.now().UTC(),
		RepositoryBranch: branch,
		BackendBranches:  backendBranches,
		OriginalPrompt:   prompt,
	}
	if prompt != "" {
		record.TaskStatus = stores.TaskStatusRunning
	}
	return record, nil
}

// waitReady polls until the instance has a public address and accepts SSH.
func (l *Lifecycle) waitReady(ctx context.Context, id int, name string) (string, error) {
	var host string
	err := pollUntil(ctx, fmt.Sprintf("compute instance %s", name), l.cfg.Timeouts.PollInterval, l.cfg.Timeouts.ComputeReady, func(ctx context.Context) (bool, error) {
		current, err := l.computes.Get(ctx, id)
		if err != nil {
			return false, errdefs.NewProviderError(fmt.Sprintf("failed to look up instance %s", name), err).
				WithProvider("compute").WithStep("readiness")
		}
		if current.Addr == "" {
			return false, nil
		}
		if err := l.shell.Probe(ctx, current.Addr); err != nil {
			log.Debug().Err(err).Str("host", current.Addr).Msg("instance not accepting SSH yet")
			return false, nil
		}
		host = current.Addr
		return true, nil
	})
	return host, err
}

// createBackendBranch creates one backend sub-environment and waits for it
// to become active.
func (l *Lifecycle) createBackendBranch(ctx context.Context, ref, branch string) error {
	if err := l.backends.CreateBranch(ctx, ref, branch); err != nil {
		return errdefs.NewProviderError(fmt.Sprintf("failed to create backend branch %s", branch), err).
			WithProvider("backend").WithStep("branch")
	}
	return pollUntil(ctx, fmt.Sprintf("backend branch %s", branch), l.cfg.Timeouts.PollInterval, l.cfg.Timeouts.BranchReady, func(ctx context.Context) (bool, error) {
		status, err := l.backends.BranchStatus(ctx, ref, branch)
		if err != nil {
			return false, errdefs.NewProviderError(fmt.Sprintf("failed to check backend branch %s", branch), err).
				WithProvider("backend").WithStep("branch")
		}
		return strings.EqualFold(status, "active"), nil
	})
}

// pushEnvironment pulls the hosting environment locally, patches in the
// instance-specific values, and uploads the result to the instance.
func (l *Lifecycle) pushEnvironment(ctx context.Context, transport ssh.Transport, dir, host, feature string) error {
	envFile := ".env." + feature
	if err := l.hostings.PullEnv(ctx, dir, envFile); err != nil {
		return errdefs.NewProviderError("failed to pull hosting environment", err).
			WithProvider("hosting").WithStep("environment")
	}

	localPath := filepath.Join(dir, envFile)
	data, err := os.ReadFile(localPath)
	if err != nil {
		return errdefs.NewProviderError("failed to read pulled environment file", err).
			WithProvider("hosting").WithStep("environment")
	}
	patched := strings.TrimRight(string(data), "\n") +
		fmt.Sprintf("\nINSTANCE_URL=http://%s:3000\nBACKEND_BRANCH=%s\n", host, feature)
	if err := os.WriteFile(localPath, []byte(patched), 0o600); err != nil {
		return errdefs.NewProviderError("failed to patch environment file", err).
			WithProvider("hosting").WithStep("environment")
	}

	if err := transport.UploadFile(ctx, localPath, remoteEnvFile, 0o600); err != nil {
		return errdefs.NewProviderError("failed to upload environment to instance", err).
			WithProvider("compute").WithStep("environment")
	}
	return nil
}

// rollback makes a best-effort attempt to delete a partially created
// instance. A failed rollback is logged with the manual deletion command,
// never re-raised over the original error; the teardown metric records
// whether the droplet was actually deleted.
func (l *Lifecycle) rollback(ctx context.Context, id int, name string) {
	log.Warn().Str("instance", name).Msg("rolling back partially created instance")
	if err := l.computes.Delete(ctx, id); err != nil {
		log.Warn().Err(err).
			Str("hint", fmt.Sprintf("delete it manually: doctl compute droplet delete %s --force", name)).
			Msg("rollback failed, instance left behind")
		l.observeTeardown("rollback", "failure")
		return
	}
	l.observeTeardown("rollback", "success")
}

// DestroyFeature tears down the compute instance bound to a feature: every
// recorded backend sub-environment, the droplet, and finally the local
// record. All outcomes are collected; nothing aborts the remaining cleanup.
func (l *Lifecycle) DestroyFeature(ctx context.Context, projectName, feature string) (*DestroySummary, error) {
	inst, ok, err := l.instances.FindByFeature(projectName, feature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errdefs.NewNotFoundError(fmt.Sprintf("no instance recorded for feature %q of project %q", feature, projectName)).
			WithHint("doctl compute droplet list --tag-name launchforge")
	}

	summary := &DestroySummary{}

	project, haveProject, err := l.projects.Get(inst.Project)
	if err != nil {
		return nil, err
	}

	for _, branch := range inst.BackendBranches {
		if !haveProject {
			summary.Branches = append(summary.Branches, BranchResult{
				Name: branch,
				Err:  errdefs.NewNotFoundError(fmt.Sprintf("project %q missing, cannot resolve backend for branch %s", inst.Project, branch)),
			})
			continue
		}
		summary.Branches = append(summary.Branches, BranchResult{
			Name: branch,
			Err:  l.destroyBackendBranch(ctx, project.Backend.ProjectRef, branch),
		})
	}

	if err := l.computes.DeleteByName(ctx, inst.Name); err != nil {
		summary.InstanceErr = err
		log.Warn().Err(err).
			Str("hint", fmt.Sprintf("delete it manually: doctl compute droplet delete %s --force", inst.Name)).
			Msg("compute instance delete failed")
	}

	if err := l.instances.Delete(inst.Name); err != nil {
		return summary, err
	}
	summary.RecordRemoved = true

	outcome := "success"
	if len(summary.Failed()) > 0 || summary.InstanceErr != nil {
		outcome = "partial"
	}
	l.observeTeardown("feature", outcome)
	log.Info().Str("instance", inst.Name).Str("outcome", outcome).Msg("feature environment destroyed")
	return summary, nil
}

func (l *Lifecycle) destroyBackendBranch(ctx context.Context, ref, branch string) error {
	if err := l.backends.DisableBranchPersistence(ctx, ref, branch); err != nil {
		log.Warn().Err(err).Str("branch", branch).Msg("persistence disable failed, attempting delete anyway")
	}
	if err := l.backends.DeleteBranch(ctx, ref, branch); err != nil {
		return errdefs.NewProviderError(fmt.Sprintf("failed to delete backend branch %s", branch), err).
			WithProvider("backend").WithStep("destroy")
	}
	return nil
}

// DestroyProject tears down a project's backend and hosting resources and
// removes its record, collecting per-resource outcomes. The repository is
// never deleted automatically; the summary carries the manual command.
func (l *Lifecycle) DestroyProject(ctx context.Context, name string) (*ProjectDestroySummary, error) {
	project, ok, err := l.projects.Get(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errdefs.NewNotFoundError(fmt.Sprintf("no project named %q", name)).
			WithHint("forge status")
	}

	summary := &ProjectDestroySummary{}

	leftover, err := l.instances.ListByProject(name)
	if err != nil {
		return nil, err
	}
	for _, inst := range leftover {
		summary.NextSteps = append(summary.NextSteps,
			fmt.Sprintf("instance %s is still recorded; tear it down with: forge clean %s --project %s", inst.Name, inst.Feature, name))
	}

	if err := l.backends.Delete(ctx, project.Backend.ProjectRef); err != nil {
		summary.Resources = append(summary.Resources, ResourceResult{
			Resource: "backend",
			Err: errdefs.NewProviderError(fmt.Sprintf("failed to delete backend project %s", project.Backend.ProjectRef), err).
				WithProvider("backend").WithStep("destroy"),
		})
	} else {
		summary.Resources = append(summary.Resources, ResourceResult{Resource: "backend"})
	}

	if err := l.hostings.Delete(ctx, name); err != nil {
		summary.Resources = append(summary.Resources, ResourceResult{
			Resource: "hosting",
			Err: errdefs.NewProviderError(fmt.Sprintf("failed to delete hosting project %s", name), err).
				WithProvider("hosting").WithStep("destroy"),
		})
	} else {
		summary.Resources = append(summary.Resources, ResourceResult{Resource: "hosting"})
	}

	if err := l.projects.Delete(name); err != nil {
		return summary, err
	}
	summary.RecordRemoved = true
	summary.NextSteps = append(summary.NextSteps,
		fmt.Sprintf("the repository is kept; delete it manually if desired: gh repo delete %s/%s --yes",
			project.Repository.Owner, project.Repository.Repo))

	outcome := "success"
	for _, r := range summary.Resources {
		if r.Err != nil {
			outcome = "partial"
		}
	}
	l.observeTeardown("project", outcome)
	log.Info().Str("project", name).Str("outcome", outcome).Msg("project destroyed")
	return summary, nil
}

func (l *Lifecycle) observeTeardown(kind, outcome string) {
	if l.metrics != nil {
		l.metrics.ObserveTeardown(kind, outcome)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setupCommand is the remote bootstrap: toolchain install and repository
// clone, run as one shell pipeline so a failure surfaces its stderr tail.
func setupCommand(repoURL string) string {
	return strings.Join([]string{
		"export DEBIAN_FRONTEND=noninteractive",
		"apt-get update -qq",
		"apt-get install -y -qq git curl build-essential",
		"curl -fsSL https://deb.nodesource.com/setup_22.x | bash -",
		"apt-get install -y -qq nodejs",
		fmt.Sprintf("git clone %s %s", repoURL, remoteWorkDir),
		fmt.Sprintf("cd %s && npm install --no-audit --no-fund", remoteWorkDir),
	}, " && ")
}
