// Package engine implements the provisioning pipeline and the compute/branch
// lifecycle manager that drive the provider adapters.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/launchforge/launchforge/pkg/config"
	"github.com/launchforge/launchforge/pkg/errdefs"
	"github.com/launchforge/launchforge/pkg/naming"
	"github.com/launchforge/launchforge/pkg/providers/backend"
	"github.com/launchforge/launchforge/pkg/providers/repohost"
	"github.com/launchforge/launchforge/pkg/stores"
	"github.com/launchforge/launchforge/pkg/telemetry"
)

// envTargets are the hosting environments every variable is attached to.
var envTargets = []string{"production", "preview", "development"}

// localEnvFile is where the pipeline materializes the resolved hosting
// environment inside the working copy.
const localEnvFile = ".env.local"

// ProvisionResult is the structured outcome of one pipeline run. On failure
// the outputs of the steps that completed are still populated, so the caller
// sees what was created before the failing step.
type ProvisionResult struct {
	Success    bool               `json:"success"`
	Project    *stores.Project    `json:"project,omitempty"`
	Repository *stores.Repository `json:"repository,omitempty"`
	Backend    *stores.Backend    `json:"backend,omitempty"`
	Hosting    *stores.Hosting    `json:"hosting,omitempty"`

	// NextSteps lists manual follow-up actions the pipeline could not
	// automate, as literal commands where possible.
	NextSteps []string `json:"nextSteps,omitempty"`
}

// repositoryResult is the typed output of the repository step. Later steps
// take it as input rather than sharing a mutable resolved-name variable, so a
// renamed resource cannot be silently confused with the original desired name.
type repositoryResult struct {
	name string
	repo *repohost.Repo
}

// backendResult is the typed output of the backend step.
type backendResult struct {
	name      string
	project   *backend.Project
	deployKey string
	appSecret string
}

// hostingResult is the typed output of the hosting step.
type hostingResult struct {
	name      string
	projectID string
}

// Pipeline provisions a new project: repository, backend, hosting, durable
// record. Steps run in strict order because each consumes the previous step's
// output. Completed steps are never rolled back on a later failure; the
// partial result is surfaced so the operator decides what to do with it.
type Pipeline struct {
	cfg      *config.Config
	repos    RepoHost
	backends Backend
	hostings Hosting
	projects *stores.ProjectStore
	metrics  *telemetry.Metrics

	now func() time.Time
}

// NewPipeline creates a provisioning pipeline. Credentials are resolved by
// the caller before the adapters are constructed, so a missing credential
// fails before any provider call.
func NewPipeline(cfg *config.Config, repos RepoHost, backends Backend, hostings Hosting, projects *stores.ProjectStore, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		repos:    repos,
		backends: backends,
		hostings: hostings,
		projects: projects,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Provision creates a fully provisioned project named desired from the local
// working copy at dir and records it durably.
func (p *Pipeline) Provision(ctx context.Context, desired, dir string) (*ProvisionResult, error) {
	result := &ProvisionResult{}

	repoRes, err := p.createRepository(ctx, desired, dir)
	if err != nil {
		p.observe("failure")
		return result, err
	}
	result.Repository = &stores.Repository{URL: repoRes.repo.URL, Owner: repoRes.repo.Owner, Repo: repoRes.repo.Name}

	backendRes, err := p.createBackend(ctx, repoRes, dir)
	if err != nil {
		p.observe("failure")
		return result, err
	}
	result.Backend = &stores.Backend{
		ProjectRef:     backendRes.project.Ref,
		Region:         backendRes.project.Region,
		DeployKey:      backendRes.deployKey,
		DeploymentName: backendRes.project.DeploymentName,
	}

	hostRes, err := p.createHosting(ctx, repoRes, backendRes, dir)
	if err != nil {
		p.observe("failure")
		return result, err
	}
	result.Hosting = &stores.Hosting{ProjectID: hostRes.projectID}

	if err := p.repos.CommitAndPush(ctx, dir, "chore: link provisioned environment"); err != nil {
		p.observe("failure")
		return result, errdefs.NewProviderError("failed to push provisioning changes", err).
			WithProvider("repohost").WithStep("push")
	}

	url, nextSteps := p.resolvePublicURL(ctx, hostRes)
	result.Hosting.URL = url
	result.NextSteps = append(result.NextSteps, nextSteps...)

	project := stores.Project{
		Name:       repoRes.name,
		CreatedAt:  p.now().UTC(),
		Repository: *result.Repository,
		Hosting:    *result.Hosting,
		Backend:    *result.Backend,
	}
	if err := p.projects.Save(project); err != nil {
		p.observe("failure")
		return result, err
	}
	result.Project = &project
	result.Success = true
	p.observe("success")

	log.Info().Str("project", project.Name).Str("url", url).Msg("project provisioned")
	return result, nil
}

// createRepository resolves the name against the repository host namespace
// and creates the remote repository from the local working copy.
func (p *Pipeline) createRepository(ctx context.Context, desired, dir string) (*repositoryResult, error) {
	name, err := naming.Resolve(ctx, desired, p.repos.Exists, naming.Strategy(p.cfg.ConflictStrategy))
	if err != nil {
		return nil, err
	}
	if name != desired {
		log.Info().Str("desired", desired).Str("resolved", name).Msg("repository name conflict resolved")
	}

	repo, err := p.repos.CreateFromLocal(ctx, name, dir, p.cfg.RepoHost.Visibility)
	if err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to create repository %q", name), err).
			WithProvider("repohost").WithStep("repository")
	}
	log.Info().Str("repository", repo.URL).Msg("repository created")
	return &repositoryResult{name: name, repo: repo}, nil
}

// createBackend provisions the backend project, deploys the local schema and
// functions, and seeds the baseline secrets.
func (p *Pipeline) createBackend(ctx context.Context, repoRes *repositoryResult, dir string) (*backendResult, error) {
	org, err := p.backends.ResolveOrg(ctx)
	if err != nil {
		return nil, errdefs.NewProviderError("failed to resolve backend organization", err).
			WithProvider("backend").WithStep("backend")
	}

	name, err := naming.Resolve(ctx, repoRes.name, p.backends.Exists, naming.Strategy(p.cfg.ConflictStrategy))
	if err != nil {
		return nil, err
	}

	project, err := p.backends.Create(ctx, name, org, p.cfg.Backend.Region, randomSecret())
	if err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to create backend project %q", name), err).
			WithProvider("backend").WithStep("backend")
	}
	log.Info().Str("backend", project.Ref).Str("region", project.Region).Msg("backend project created")

	if err := p.backends.Deploy(ctx, project.Ref, dir); err != nil {
		return nil, errdefs.NewProviderError("failed to deploy schema and functions", err).
			WithProvider("backend").WithStep("backend")
	}

	deployKey, err := p.backends.CreateDeployKey(ctx, project.Ref)
	if err != nil {
		return nil, errdefs.NewProviderError("failed to create deploy key", err).
			WithProvider("backend").WithStep("backend")
	}

	appSecret := randomSecret()
	baseline := map[string]string{
		"APP_SECRET": appSecret,
		"SITE_URL":   project.URL,
	}
	if err := p.backends.SetSecrets(ctx, project.Ref, baseline); err != nil {
		return nil, errdefs.NewProviderError("failed to set baseline secrets", err).
			WithProvider("backend").WithStep("backend")
	}

	return &backendResult{name: name, project: project, deployKey: deployKey, appSecret: appSecret}, nil
}

// createHosting links the working copy to a hosting project under the name
// the repository step actually produced, attaches the backend outputs as
// environment variables, connects the git integration, and pulls the
// resolved environment into a local file.
func (p *Pipeline) createHosting(ctx context.Context, repoRes *repositoryResult, backendRes *backendResult, dir string) (*hostingResult, error) {
	name, err := naming.Resolve(ctx, repoRes.name, p.hostings.Exists, naming.Strategy(p.cfg.ConflictStrategy))
	if err != nil {
		return nil, err
	}

	projectID, err := p.hostings.Link(ctx, dir, name)
	if err != nil {
		return nil, errdefs.NewProviderError(fmt.Sprintf("failed to link hosting project %q", name), err).
			WithProvider("hosting").WithStep("hosting")
	}
	log.Info().Str("hosting", projectID).Str("name", name).Msg("hosting project linked")

	env := map[string]string{
		"BACKEND_URL":         backendRes.project.URL,
		"BACKEND_SERVICE_KEY": backendRes.deployKey,
		"APP_SECRET":          backendRes.appSecret,
	}
	for _, key := range []string{"BACKEND_URL", "BACKEND_SERVICE_KEY", "APP_SECRET"} {
		if err := p.hostings.AddEnv(ctx, dir, key, env[key], envTargets); err != nil {
			return nil, errdefs.NewProviderError(fmt.Sprintf("failed to set hosting environment variable %s", key), err).
				WithProvider("hosting").WithStep("hosting")
		}
	}

	if err := p.hostings.ConnectGit(ctx, dir, repoRes.repo.URL); err != nil {
		return nil, errdefs.NewProviderError("failed to connect hosting project to repository", err).
			WithProvider("hosting").WithStep("hosting")
	}

	if err := p.hostings.PullEnv(ctx, dir, localEnvFile); err != nil {
		return nil, errdefs.NewProviderError("failed to pull hosting environment", err).
			WithProvider("hosting").WithStep("hosting")
	}

	return &hostingResult{name: name, projectID: projectID}, nil
}

// resolvePublicURL polls for a human-readable production alias. When none
// resolves before the bound, it degrades to a constructed URL rather than
// failing the pipeline, and tells the operator how to verify later.
func (p *Pipeline) resolvePublicURL(ctx context.Context, hostRes *hostingResult) (string, []string) {
	var alias string
	err := pollUntil(ctx, "hosting production alias", p.cfg.Timeouts.PollInterval, p.cfg.Timeouts.AliasReady, func(ctx context.Context) (bool, error) {
		found, err := p.hostings.ProductionAlias(ctx, hostRes.name)
		if err != nil {
			// alias lookup is non-essential, keep polling
			log.Debug().Err(err).Msg("alias lookup failed, retrying")
			return false, nil
		}
		alias = found
		return alias != "", nil
	})
	if err == nil {
		return "https://" + alias, nil
	}

	fallback := fmt.Sprintf("https://%s.%s", hostRes.name, p.cfg.Hosting.ProductionDomain)
	log.Warn().Str("fallback", fallback).Msg("no production alias resolved before timeout, using constructed URL")
	return fallback, []string{
		fmt.Sprintf("verify the production URL once the first build finishes: vercel alias ls %s", hostRes.name),
	}
}

func (p *Pipeline) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.ObserveProvision(outcome)
	}
}

// randomSecret returns a generated secret suitable for database passwords
// and application secrets.
func randomSecret() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
