package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for launchforge.
type Config struct {
	// DataDir holds the record stores and pending confirmations.
	DataDir string `yaml:"dataDir" validate:"required"`

	// ConflictStrategy selects fail-vs-suffix behavior when a desired
	// resource name already exists at a provider.
	ConflictStrategy string `yaml:"conflictStrategy" validate:"oneof=fail suffix"`

	RepoHost RepoHostConfig `yaml:"repoHost"`
	Backend  BackendConfig  `yaml:"backend"`
	Hosting  HostingConfig  `yaml:"hosting"`
	Compute  ComputeConfig  `yaml:"compute"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// RepoHostConfig configures the source-control host adapter.
type RepoHostConfig struct {
	// Owner is the organization or user namespace repositories are created in.
	Owner string `yaml:"owner"`

	// DefaultBranch is the upstream default branch feature branches fork from.
	DefaultBranch string `yaml:"defaultBranch" validate:"required"`

	// Visibility of created repositories.
	Visibility string `yaml:"visibility" validate:"oneof=private public"`
}

// BackendConfig configures the backend-as-a-service adapter.
type BackendConfig struct {
	// Region the backend project is created in.
	Region string `yaml:"region" validate:"required"`
}

// HostingConfig configures the hosting/deploy adapter.
type HostingConfig struct {
	// Team is the hosting provider team/scope, empty for the personal scope.
	Team string `yaml:"team"`

	// ProductionDomain is the apex used to construct a fallback URL when no
	// human-readable production alias resolves before the poll timeout.
	ProductionDomain string `yaml:"productionDomain" validate:"required"`
}

// ComputeConfig configures the remote compute adapter and shell access.
type ComputeConfig struct {
	Region string `yaml:"region" validate:"required"`
	Size   string `yaml:"size" validate:"required"`
	Image  string `yaml:"image" validate:"required"`

	// SSHKeyFingerprint identifies the provider-registered key injected into
	// new instances.
	SSHKeyFingerprint string `yaml:"sshKeyFingerprint"`

	// SSHUser and SSHKeyPath are used for remote shell sessions.
	SSHUser    string `yaml:"sshUser" validate:"required"`
	SSHKeyPath string `yaml:"sshKeyPath"`

	// ExposedPorts are opened on the instance firewall after creation.
	ExposedPorts []int `yaml:"exposedPorts" validate:"dive,gt=0,lte=65535"`
}

// TimeoutConfig bounds every polling loop and remote operation.
type TimeoutConfig struct {
	PollInterval time.Duration `yaml:"pollInterval" validate:"gt=0"`
	ComputeReady time.Duration `yaml:"computeReady" validate:"gt=0"`
	BranchReady  time.Duration `yaml:"branchReady" validate:"gt=0"`
	AliasReady   time.Duration `yaml:"aliasReady" validate:"gt=0"`
	RemoteSetup  time.Duration `yaml:"remoteSetup" validate:"gt=0"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir:          filepath.Join(home, ".launchforge"),
		ConflictStrategy: "suffix",
		RepoHost: RepoHostConfig{
			DefaultBranch: "main",
			Visibility:    "private",
		},
		Backend: BackendConfig{
			Region: "eu-central-1",
		},
		Hosting: HostingConfig{
			ProductionDomain: "vercel.app",
		},
		Compute: ComputeConfig{
			Region:       "fra1",
			Size:         "s-2vcpu-4gb",
			Image:        "ubuntu-24-04-x64",
			SSHUser:      "root",
			ExposedPorts: []int{3000},
		},
		Timeouts: TimeoutConfig{
			PollInterval: 5 * time.Second,
			ComputeReady: 5 * time.Minute,
			BranchReady:  2 * time.Minute,
			AliasReady:   90 * time.Second,
			RemoteSetup:  20 * time.Minute,
		},
	}
}

// Load reads the YAML file at path on top of the defaults and validates the
// result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ProjectStorePath returns the path of the project registry file.
func (c *Config) ProjectStorePath() string {
	return filepath.Join(c.DataDir, "projects.json")
}

// InstanceStorePath returns the path of the compute instance registry file.
func (c *Config) InstanceStorePath() string {
	return filepath.Join(c.DataDir, "instances.json")
}

// ConfirmationStorePath returns the path of the pending confirmation file.
func (c *Config) ConfirmationStorePath() string {
	return filepath.Join(c.DataDir, "confirmations.json")
}
