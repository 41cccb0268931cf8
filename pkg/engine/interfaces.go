package engine

import (
	"context"

	"github.com/launchforge/launchforge/pkg/providers/backend"
	"github.com/launchforge/launchforge/pkg/providers/compute"
	"github.com/launchforge/launchforge/pkg/providers/repohost"
	"github.com/launchforge/launchforge/pkg/transports/ssh"
)

// RepoHost is the source-control surface the engine depends on.
type RepoHost interface {
	Exists(ctx context.Context, name string) (bool, error)
	CreateFromLocal(ctx context.Context, name, dir, visibility string) (*repohost.Repo, error)
	CommitAndPush(ctx context.Context, dir, message string) error
	PullRequestForBranch(ctx context.Context, repo *repohost.Repo, branch string) (*repohost.PullRequest, error)
}

// Backend is the backend-as-a-service surface the engine depends on.
type Backend interface {
	ResolveOrg(ctx context.Context) (string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name, org, region, dbPassword string) (*backend.Project, error)
	Deploy(ctx context.Context, ref, dir string) error
	CreateDeployKey(ctx context.Context, ref string) (string, error)
	SetSecrets(ctx context.Context, ref string, secrets map[string]string) error
	Delete(ctx context.Context, ref string) error
	CreateBranch(ctx context.Context, ref, name string) error
	BranchStatus(ctx context.Context, ref, name string) (string, error)
	DisableBranchPersistence(ctx context.Context, ref, name string) error
	DeleteBranch(ctx context.Context, ref, name string) error
}

// Hosting is the hosting/deploy surface the engine depends on.
type Hosting interface {
	Exists(ctx context.Context, name string) (bool, error)
	Link(ctx context.Context, dir, name string) (string, error)
	ConnectGit(ctx context.Context, dir, repoURL string) error
	AddEnv(ctx context.Context, dir, key, value string, targets []string) error
	PullEnv(ctx context.Context, dir, destFile string) error
	ProductionAlias(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Compute is the remote compute surface the engine depends on.
type Compute interface {
	Create(ctx context.Context, name string) (*compute.Instance, error)
	Get(ctx context.Context, id int) (*compute.Instance, error)
	Delete(ctx context.Context, id int) error
	DeleteByName(ctx context.Context, name string) error
	List(ctx context.Context) ([]compute.Instance, error)
	ExposePorts(ctx context.Context, id int, ports []int) error
}

// Shell opens remote sessions on provisioned compute instances.
type Shell interface {
	// Probe checks reachability with a short timeout and non-interactive auth.
	Probe(ctx context.Context, host string) error

	// Open returns a connected transport to the host. The caller disconnects.
	Open(ctx context.Context, host string) (ssh.Transport, error)
}
