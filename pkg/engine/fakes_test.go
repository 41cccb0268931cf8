package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/launchforge/launchforge/pkg/config"
	"github.com/launchforge/launchforge/pkg/providers/backend"
	"github.com/launchforge/launchforge/pkg/providers/compute"
	"github.com/launchforge/launchforge/pkg/providers/repohost"
	"github.com/launchforge/launchforge/pkg/stores"
	"github.com/launchforge/launchforge/pkg/transports/ssh"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Hosting.ProductionDomain = "example.dev"
	cfg.Timeouts.PollInterval = time.Millisecond
	cfg.Timeouts.ComputeReady = 100 * time.Millisecond
	cfg.Timeouts.BranchReady = 100 * time.Millisecond
	cfg.Timeouts.AliasReady = 10 * time.Millisecond
	cfg.Timeouts.RemoteSetup = time.Second
	return cfg
}

type fakeRepoHost struct {
	existing  map[string]bool
	createErr error
	pushErr   error

	created []string
	pushed  int
	pr      *repohost.PullRequest
}

func (f *fakeRepoHost) Exists(_ context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeRepoHost) CreateFromLocal(_ context.Context, name, _, _ string) (*repohost.Repo, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return &repohost.Repo{URL: "https://github.com/acme/" + name, Owner: "acme", Name: name}, nil
}

func (f *fakeRepoHost) CommitAndPush(_ context.Context, _, _ string) error {
	f.pushed++
	return f.pushErr
}

func (f *fakeRepoHost) PullRequestForBranch(_ context.Context, _ *repohost.Repo, _ string) (*repohost.PullRequest, error) {
	return f.pr, nil
}

type fakeBackend struct {
	createErr        error
	deployErr        error
	deleteErr        error
	deleteBranchErrs map[string]error

	created          []string
	secrets          map[string]string
	createdBranches  []string
	deletedBranches  []string
	disabledBranches []string
	deletedProjects  []string
}

func (f *fakeBackend) ResolveOrg(context.Context) (string, error) { return "org_1", nil }

func (f *fakeBackend) Exists(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeBackend) Create(_ context.Context, name, _, region, _ string) (*backend.Project, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return &backend.Project{Ref: "ref_1", Name: name, Region: region, URL: "https://ref_1.supabase.co", DeploymentName: name}, nil
}

func (f *fakeBackend) Deploy(_ context.Context, _, _ string) error { return f.deployErr }

func (f *fakeBackend) CreateDeployKey(_ context.Context, _ string) (string, error) {
	return "srv_key", nil
}

func (f *fakeBackend) SetSecrets(_ context.Context, _ string, secrets map[string]string) error {
	f.secrets = secrets
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, ref string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedProjects = append(f.deletedProjects, ref)
	return nil
}

func (f *fakeBackend) CreateBranch(_ context.Context, _, name string) error {
	f.createdBranches = append(f.createdBranches, name)
	return nil
}

func (f *fakeBackend) BranchStatus(_ context.Context, _, _ string) (string, error) {
	return "ACTIVE", nil
}

func (f *fakeBackend) DisableBranchPersistence(_ context.Context, _, name string) error {
	f.disabledBranches = append(f.disabledBranches, name)
	return nil
}

func (f *fakeBackend) DeleteBranch(_ context.Context, _, name string) error {
	if err := f.deleteBranchErrs[name]; err != nil {
		return err
	}
	f.deletedBranches = append(f.deletedBranches, name)
	return nil
}

type fakeHosting struct {
	existing  map[string]bool
	linkErr   error
	alias     string
	deleteErr error

	linked  []string
	envKeys []string
	pulled  []string
	deleted []string
}

func (f *fakeHosting) Exists(_ context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeHosting) Link(_ context.Context, _, name string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	f.linked = append(f.linked, name)
	return "prj_1", nil
}

func (f *fakeHosting) ConnectGit(_ context.Context, _, _ string) error { return nil }

func (f *fakeHosting) AddEnv(_ context.Context, _, key, _ string, _ []string) error {
	f.envKeys = append(f.envKeys, key)
	return nil
}

func (f *fakeHosting) PullEnv(_ context.Context, dir, destFile string) error {
	f.pulled = append(f.pulled, destFile)
	return os.WriteFile(filepath.Join(dir, destFile), []byte("BACKEND_URL=https://ref_1.supabase.co\n"), 0o600)
}

func (f *fakeHosting) ProductionAlias(_ context.Context, _ string) (string, error) {
	return f.alias, nil
}

func (f *fakeHosting) Delete(_ context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeCompute struct {
	createErr error
	deleteErr error
	exposeErr error

	nextID        int
	addr          string
	deletedIDs    []int
	deletedByName []string
	exposed       [][]int
	instances     []compute.Instance
}

func (f *fakeCompute) Create(_ context.Context, name string) (*compute.Instance, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	inst := compute.Instance{ID: f.nextID, Name: name}
	f.instances = append(f.instances, inst)
	return &inst, nil
}

func (f *fakeCompute) Get(_ context.Context, id int) (*compute.Instance, error) {
	for _, inst := range f.instances {
		if inst.ID == id {
			inst.Addr = f.addr
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("no droplet %d", id)
}

func (f *fakeCompute) Delete(_ context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeCompute) DeleteByName(_ context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedByName = append(f.deletedByName, name)
	return nil
}

func (f *fakeCompute) List(_ context.Context) ([]compute.Instance, error) {
	return f.instances, nil
}

func (f *fakeCompute) ExposePorts(_ context.Context, _ int, ports []int) error {
	if f.exposeErr != nil {
		return f.exposeErr
	}
	f.exposed = append(f.exposed, ports)
	return nil
}

type fakeShell struct {
	probeErrs map[string]error
	openErr   error
	transport *fakeTransport
}

func (f *fakeShell) Probe(_ context.Context, host string) error {
	return f.probeErrs[host]
}

func (f *fakeShell) Open(_ context.Context, _ string) (ssh.Transport, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.transport, nil
}

// fakeTransport records remote commands and uploads. failSubstr makes the
// matching command fail with failStderr; stdout maps a command substring to
// canned output.
type fakeTransport struct {
	commands   []string
	uploads    []string
	failSubstr string
	failStderr string
	stdout     map[string]string
}

func (t *fakeTransport) Connect(context.Context) error { return nil }
func (t *fakeTransport) Disconnect() error             { return nil }

func (t *fakeTransport) Execute(_ context.Context, cmd string) (*ssh.ExecResult, error) {
	t.commands = append(t.commands, cmd)
	if t.failSubstr != "" && strings.Contains(cmd, t.failSubstr) {
		return &ssh.ExecResult{Stderr: t.failStderr, ExitCode: 1}, fmt.Errorf("command exited with code 1")
	}
	for substr, out := range t.stdout {
		if strings.Contains(cmd, substr) {
			return &ssh.ExecResult{Stdout: out}, nil
		}
	}
	return &ssh.ExecResult{}, nil
}

func (t *fakeTransport) UploadFile(_ context.Context, localPath, remotePath string, _ uint32) error {
	t.uploads = append(t.uploads, localPath+" -> "+remotePath)
	return nil
}

func (t *fakeTransport) DownloadFile(_ context.Context, _, _ string) error { return nil }

func saveProject(t *testing.T, store *stores.ProjectStore, name string) stores.Project {
	t.Helper()
	project := stores.Project{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Repository: stores.Repository{
			URL:   "https://github.com/acme/" + name,
			Owner: "acme",
			Repo:  name,
		},
		Hosting: stores.Hosting{URL: "https://" + name + ".example.dev", ProjectID: "prj_1"},
		Backend: stores.Backend{ProjectRef: "ref_1", Region: "eu-central-1", DeployKey: "srv_key", DeploymentName: name},
	}
	if err := store.Save(project); err != nil {
		t.Fatalf("saving project fixture: %v", err)
	}
	return project
}
