// Package repohost adapts the GitHub CLI into the typed repository operations
// the orchestrator needs. The adapter is a stateless translator; it never
// persists anything.
package repohost

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/launchforge/launchforge/pkg/providers"
)

// Repo describes a created repository.
type Repo struct {
	URL   string
	Owner string
	Name  string
}

// PullRequest summarizes an open pull request for a branch.
type PullRequest struct {
	URL   string `json:"url"`
	State string `json:"state"`
	Title string `json:"title"`
}

// Adapter wraps the gh CLI.
type Adapter struct {
	runner providers.Runner

	// owner is the organization or user namespace; empty for the
	// authenticated user.
	owner string
	token string
}

// New creates a repository host adapter.
func New(runner providers.Runner, owner, token string) *Adapter {
	return &Adapter{runner: runner, owner: owner, token: token}
}

func (a *Adapter) env() []string {
	return []string{"GH_TOKEN=" + a.token, "GH_PROMPT_DISABLED=1"}
}

// slug returns owner/name, falling back to name alone for the authenticated
// user's namespace.
func (a *Adapter) slug(name string) string {
	if a.owner == "" {
		return name
	}
	return a.owner + "/" + name
}

// Exists probes whether a repository with the given name already exists.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	result, err := a.runner.Run(ctx, "gh", []string{"repo", "view", a.slug(name), "--json", "name"}, providers.RunOptions{Env: a.env()})
	if err == nil {
		return true, nil
	}
	if result != nil && (strings.Contains(result.Stderr, "Could not resolve") || strings.Contains(result.Stderr, "HTTP 404")) {
		return false, nil
	}
	return false, fmt.Errorf("repository existence check failed: %w", err)
}

// CreateFromLocal creates a remote repository from an already-initialized
// local working copy and pushes it.
func (a *Adapter) CreateFromLocal(ctx context.Context, name, dir, visibility string) (*Repo, error) {
	args := []string{"repo", "create", a.slug(name), "--source", ".", "--push", "--" + visibility}
	if _, err := a.runner.Run(ctx, "gh", args, providers.RunOptions{Dir: dir, Env: a.env()}); err != nil {
		return nil, fmt.Errorf("repository create failed: %w", err)
	}

	result, err := a.runner.Run(ctx, "gh", []string{"repo", "view", a.slug(name), "--json", "url,owner,name"}, providers.RunOptions{Env: a.env()})
	if err != nil {
		return nil, fmt.Errorf("repository lookup after create failed: %w", err)
	}

	var view struct {
		URL   string `json:"url"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &view); err != nil {
		return nil, fmt.Errorf("failed to parse repository view: %w", err)
	}
	return &Repo{URL: view.URL, Owner: view.Owner.Login, Name: view.Name}, nil
}

// CommitAndPush commits any local changes in dir and pushes them upstream.
// A clean tree is not an error; there is simply nothing to trigger.
func (a *Adapter) CommitAndPush(ctx context.Context, dir, message string) error {
	status, err := a.runner.Run(ctx, "git", []string{"status", "--porcelain"}, providers.RunOptions{Dir: dir})
	if err != nil {
		return fmt.Errorf("git status failed: %w", err)
	}
	if status.Stdout != "" {
		if _, err := a.runner.Run(ctx, "git", []string{"add", "-A"}, providers.RunOptions{Dir: dir}); err != nil {
			return fmt.Errorf("git add failed: %w", err)
		}
		if _, err := a.runner.Run(ctx, "git", []string{"commit", "-m", message}, providers.RunOptions{Dir: dir}); err != nil {
			return fmt.Errorf("git commit failed: %w", err)
		}
	}
	if _, err := a.runner.Run(ctx, "git", []string{"push"}, providers.RunOptions{Dir: dir}); err != nil {
		return fmt.Errorf("git push failed: %w", err)
	}
	return nil
}

// PullRequestForBranch returns the open pull request for a branch, or nil.
func (a *Adapter) PullRequestForBranch(ctx context.Context, repo *Repo, branch string) (*PullRequest, error) {
	args := []string{"pr", "list", "--repo", repo.Owner + "/" + repo.Name, "--head", branch, "--json", "url,state,title"}
	result, err := a.runner.Run(ctx, "gh", args, providers.RunOptions{Env: a.env()})
	if err != nil {
		return nil, fmt.Errorf("pull request lookup failed: %w", err)
	}

	var prs []PullRequest
	if err := json.Unmarshal([]byte(result.Stdout), &prs); err != nil {
		return nil, fmt.Errorf("failed to parse pull request list: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}
