package secrets

import (
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

func TestResolveFromKeyring(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()
	r.service = "launchforge-test"

	if err := r.Store(RepoHostToken, "ghp_test"); err != nil {
		t.Fatalf("storing credential: %v", err)
	}

	secret, err := r.Resolve(RepoHostToken)
	if err != nil {
		t.Fatalf("resolving credential: %v", err)
	}
	if secret != "ghp_test" {
		t.Errorf("got %q, want %q", secret, "ghp_test")
	}
}

func TestResolveFallsBackToEnvironment(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()
	r.service = "launchforge-test"

	t.Setenv("VERCEL_TOKEN", "vc_test")

	secret, err := r.Resolve(HostingToken)
	if err != nil {
		t.Fatalf("resolving credential: %v", err)
	}
	if secret != "vc_test" {
		t.Errorf("got %q, want %q", secret, "vc_test")
	}
}

func TestResolveMissingIsConfigurationError(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()
	r.service = "launchforge-test"

	t.Setenv("DIGITALOCEAN_TOKEN", "")
	t.Setenv("DO_TOKEN", "")

	_, err := r.Resolve(ComputeToken)
	if err == nil {
		t.Fatal("expected error for missing credential")
	}
	if !errdefs.IsConfiguration(err) {
		t.Errorf("expected configuration classification, got: %v", err)
	}
}

func TestResolveAllStopsAtFirstMissing(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()
	r.service = "launchforge-test"

	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("SUPABASE_ACCESS_TOKEN", "")

	_, err := r.ResolveAll(RepoHostToken, BackendToken, HostingToken)
	if err == nil {
		t.Fatal("expected error when a credential is missing")
	}
	if !errdefs.IsConfiguration(err) {
		t.Errorf("expected configuration classification, got: %v", err)
	}
}
