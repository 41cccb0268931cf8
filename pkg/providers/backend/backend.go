// Package backend adapts the Supabase CLI into the typed backend-as-a-service
// operations the orchestrator needs: project and branch management, schema
// and function deploys, secrets, and deploy keys.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/launchforge/launchforge/pkg/providers"
)

// Project describes a created backend project.
type Project struct {
	Ref            string
	Name           string
	Region         string
	URL            string
	DeploymentName string
}

// Branch describes a backend sub-environment.
type Branch struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Adapter wraps the supabase CLI.
type Adapter struct {
	runner providers.Runner
	token  string
}

// New creates a backend adapter.
func New(runner providers.Runner, token string) *Adapter {
	return &Adapter{runner: runner, token: token}
}

func (a *Adapter) env() []string {
	return []string{"SUPABASE_ACCESS_TOKEN=" + a.token}
}

// ResolveOrg returns the organization slug owning new projects, resolved
// from the access token.
func (a *Adapter) ResolveOrg(ctx context.Context) (string, error) {
	result, err := a.runner.Run(ctx, "supabase", []string{"orgs", "list", "-o", "json"}, providers.RunOptions{Env: a.env()})
	if err != nil {
		return "", fmt.Errorf("organization lookup failed: %w", err)
	}

	var orgs []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &orgs); err != nil {
		return "", fmt.Errorf("failed to parse organization list: %w", err)
	}
	if len(orgs) == 0 {
		return "", fmt.Errorf("access token belongs to no organization")
	}
	return orgs[0].ID, nil
}

// Exists probes whether a backend project with the given name already exists.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	result, err := a.runner.Run(ctx, "supabase", []string{"projects", "list", "-o", "json"}, providers.RunOptions{Env: a.env()})
	if err != nil {
		return false, fmt.Errorf("project existence check failed: %w", err)
	}

	var projects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &projects); err != nil {
		return false, fmt.Errorf("failed to parse project list: %w", err)
	}
	for _, p := range projects {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create provisions a backend project in the given organization and region.
func (a *Adapter) Create(ctx context.Context, name, org, region, dbPassword string) (*Project, error) {
	args := []string{"projects", "create", name, "--org-id", org, "--region", region, "--db-password", dbPassword, "-o", "json"}
	result, err := a.runner.Run(ctx, "supabase", args, providers.RunOptions{Env: a.env()})
	if err != nil {
		return nil, fmt.Errorf("project create failed: %w", err)
	}

	var created struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Region string `json:"region"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &created); err != nil {
		return nil, fmt.Errorf("failed to parse project create output: %w", err)
	}
	return &Project{
		Ref:            created.ID,
		Name:           created.Name,
		Region:         created.Region,
		URL:            fmt.Sprintf("https://%s.supabase.co", created.ID),
		DeploymentName: created.Name,
	}, nil
}

// Deploy pushes the local schema and functions to the project.
func (a *Adapter) Deploy(ctx context.Context, ref, dir string) error {
	if _, err := a.runner.Run(ctx, "supabase", []string{"db", "push", "--project-ref", ref}, providers.RunOptions{Dir: dir, Env: a.env()}); err != nil {
		return fmt.Errorf("schema push failed: %w", err)
	}
	if _, err := a.runner.Run(ctx, "supabase", []string{"functions", "deploy", "--project-ref", ref}, providers.RunOptions{Dir: dir, Env: a.env()}); err != nil {
		return fmt.Errorf("function deploy failed: %w", err)
	}
	return nil
}

// CreateDeployKey returns the project's service-role key for deployments.
func (a *Adapter) CreateDeployKey(ctx context.Context, ref string) (string, error) {
	result, err := a.runner.Run(ctx, "supabase", []string{"projects", "api-keys", "--project-ref", ref, "-o", "json"}, providers.RunOptions{Env: a.env()})
	if err != nil {
		return "", fmt.Errorf("deploy key lookup failed: %w", err)
	}

	var keys []struct {
		Name   string `json:"name"`
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &keys); err != nil {
		return "", fmt.Errorf("failed to parse api keys: %w", err)
	}
	for _, k := range keys {
		if k.Name == "service_role" {
			return k.APIKey, nil
		}
	}
	return "", fmt.Errorf("no service_role key on project %s", ref)
}

// SetSecrets sets environment variables on the project in bulk.
func (a *Adapter) SetSecrets(ctx context.Context, ref string, secrets map[string]string) error {
	if len(secrets) == 0 {
		return nil
	}
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{"secrets", "set", "--project-ref", ref}
	for _, k := range keys {
		args = append(args, k+"="+secrets[k])
	}
	if _, err := a.runner.Run(ctx, "supabase", args, providers.RunOptions{Env: a.env()}); err != nil {
		return fmt.Errorf("secret set failed: %w", err)
	}
	return nil
}

// Delete removes the backend project.
func (a *Adapter) Delete(ctx context.Context, ref string) error {
	if _, err := a.runner.Run(ctx, "supabase", []string{"projects", "delete", ref, "--yes"}, providers.RunOptions{Env: a.env()}); err != nil {
		return fmt.Errorf("project delete failed: %w", err)
	}
	return nil
}

// CreateBranch creates a named sub-environment on the project.
func (a *Adapter) CreateBranch(ctx context.Context, ref, name string) error {
	if _, err := a.runner.Run(ctx, "supabase", []string{"branches", "create", name, "--project-ref", ref}, providers.RunOptions{Env: a.env()}); err != nil {
		return fmt.Errorf("branch create failed: %w", err)
	}
	return nil
}

// BranchStatus returns the readiness status of a sub-environment.
func (a *Adapter) BranchStatus(ctx context.Context, ref, name string) (string, error) {
	result, err := a.runner.Run(ctx, "supabase", []string{"branches", "get", name, "--project-ref", ref, "-o", "json"}, providers.RunOptions{Env: a.env()})
	if err != nil {
		return "", fmt.Errorf("branch status lookup failed: %w", err)
	}
	var branch Branch
	if err := json.Unmarshal([]byte(result.Stdout), &branch); err != nil {
		return "", fmt.Errorf("failed to parse branch status: %w", err)
	}
	return branch.Status, nil
}

// DisableBranchPersistence turns off persistence before a branch delete.
func (a *Adapter) DisableBranchPersistence(ctx context.Context, ref, name string) error {
	if _, err := a.runner.Run(ctx, "supabase", []string{"branches", "disable-persistence", name, "--project-ref", ref}, providers.RunOptions{Env: a.env()}); err != nil {
		return fmt.Errorf("branch persistence disable failed: %w", err)
	}
	return nil
}

// DeleteBranch removes a sub-environment.
func (a *Adapter) DeleteBranch(ctx context.Context, ref, name string) error {
	if _, err := a.runner.Run(ctx, "supabase", []string{"branches", "delete", name, "--project-ref", ref, "--yes"}, providers.RunOptions{Env: a.env()}); err != nil {
		return fmt.Errorf("branch delete failed: %w", err)
	}
	return nil
}
