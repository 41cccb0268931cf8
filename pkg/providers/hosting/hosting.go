// Package hosting adapts the Vercel CLI into the typed hosting/deploy
// operations the orchestrator needs: project linking, git integration,
// environment management, and production alias resolution.
package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/launchforge/launchforge/pkg/providers"
)

// Alias is one alias attached to a hosting project.
type Alias struct {
	Alias string `json:"alias"`

	// AutoAssigned marks provider-generated team/branch aliases as opposed
	// to human-readable production aliases.
	AutoAssigned bool `json:"autoAssigned"`
}

// Adapter wraps the vercel CLI.
type Adapter struct {
	runner providers.Runner
	token  string

	// team is the provider scope, empty for the personal scope.
	team string
}

// New creates a hosting adapter.
func New(runner providers.Runner, team, token string) *Adapter {
	return &Adapter{runner: runner, team: team, token: token}
}

func (a *Adapter) baseArgs(args ...string) []string {
	out := append([]string{}, args...)
	out = append(out, "--token", a.token)
	if a.team != "" {
		out = append(out, "--scope", a.team)
	}
	return out
}

// Exists probes whether a hosting project with the given name already exists.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	result, err := a.runner.Run(ctx, "vercel", a.baseArgs("project", "inspect", name), providers.RunOptions{})
	if err == nil {
		return true, nil
	}
	if result != nil && strings.Contains(result.Stderr, "not found") {
		return false, nil
	}
	return false, fmt.Errorf("hosting project existence check failed: %w", err)
}

// Link attaches the local working copy to a hosting project, creating the
// project if it does not exist yet.
func (a *Adapter) Link(ctx context.Context, dir, name string) (string, error) {
	if _, err := a.runner.Run(ctx, "vercel", a.baseArgs("link", "--yes", "--project", name), providers.RunOptions{Dir: dir}); err != nil {
		return "", fmt.Errorf("project link failed: %w", err)
	}

	result, err := a.runner.Run(ctx, "vercel", a.baseArgs("project", "inspect", name, "--json"), providers.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("project inspect after link failed: %w", err)
	}
	var project struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &project); err != nil {
		return "", fmt.Errorf("failed to parse project inspect output: %w", err)
	}
	return project.ID, nil
}

// ConnectGit connects the hosting project to its source repository so pushes
// trigger builds.
func (a *Adapter) ConnectGit(ctx context.Context, dir, repoURL string) error {
	if _, err := a.runner.Run(ctx, "vercel", a.baseArgs("git", "connect", repoURL, "--yes"), providers.RunOptions{Dir: dir}); err != nil {
		return fmt.Errorf("git connect failed: %w", err)
	}
	return nil
}

// AddEnv sets one environment variable on the given target environments.
// The value travels via stdin, never argv.
func (a *Adapter) AddEnv(ctx context.Context, dir, key, value string, targets []string) error {
	for _, target := range targets {
		opts := providers.RunOptions{Dir: dir, Stdin: value}
		if _, err := a.runner.Run(ctx, "vercel", a.baseArgs("env", "add", key, target), opts); err != nil {
			return fmt.Errorf("env add %s (%s) failed: %w", key, target, err)
		}
	}
	return nil
}

// PullEnv materializes the resolved environment into a local file.
func (a *Adapter) PullEnv(ctx context.Context, dir, destFile string) error {
	if _, err := a.runner.Run(ctx, "vercel", a.baseArgs("env", "pull", destFile, "--yes"), providers.RunOptions{Dir: dir}); err != nil {
		return fmt.Errorf("env pull failed: %w", err)
	}
	return nil
}

// ProductionAlias returns the first non-auto-assigned alias of the project,
// or empty when only provider-generated aliases exist yet.
func (a *Adapter) ProductionAlias(ctx context.Context, name string) (string, error) {
	result, err := a.runner.Run(ctx, "vercel", a.baseArgs("alias", "ls", name, "--json"), providers.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("alias lookup failed: %w", err)
	}

	var aliases []Alias
	if err := json.Unmarshal([]byte(result.Stdout), &aliases); err != nil {
		return "", fmt.Errorf("failed to parse alias list: %w", err)
	}
	for _, alias := range aliases {
		if !alias.AutoAssigned {
			return alias.Alias, nil
		}
	}
	return "", nil
}

// Delete removes the hosting project.
func (a *Adapter) Delete(ctx context.Context, name string) error {
	if _, err := a.runner.Run(ctx, "vercel", a.baseArgs("project", "rm", name, "--yes"), providers.RunOptions{}); err != nil {
		return fmt.Errorf("project delete failed: %w", err)
	}
	return nil
}
