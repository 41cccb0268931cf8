// Package secrets resolves provider credentials from the OS keyring with an
// environment-variable fallback. Resolution happens before any provider call
// so a missing credential fails fast as a configuration error.
package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

// keyringService is the service name credentials are stored under.
const keyringService = "launchforge"

// Credential identifies one provider credential.
type Credential struct {
	// Name is the keyring entry name, e.g. "repohost-token".
	Name string

	// EnvVars are checked in order when the keyring has no entry.
	EnvVars []string
}

// Well-known provider credentials.
var (
	RepoHostToken = Credential{Name: "repohost-token", EnvVars: []string{"GITHUB_TOKEN", "GH_TOKEN"}}
	BackendToken  = Credential{Name: "backend-token", EnvVars: []string{"SUPABASE_ACCESS_TOKEN"}}
	HostingToken  = Credential{Name: "hosting-token", EnvVars: []string{"VERCEL_TOKEN"}}
	ComputeToken  = Credential{Name: "compute-token", EnvVars: []string{"DIGITALOCEAN_TOKEN", "DO_TOKEN"}}
)

// Resolver resolves credentials for provider adapters.
type Resolver struct {
	// service overrides the keyring service name, for tests.
	service string
}

// NewResolver creates a credential resolver.
func NewResolver() *Resolver {
	return &Resolver{service: keyringService}
}

// Resolve returns the secret for the given credential. The keyring is
// consulted first, then each environment variable in order. A credential
// found nowhere yields a configuration error naming the credential and the
// environment variables that would satisfy it.
func (r *Resolver) Resolve(cred Credential) (string, error) {
	secret, err := keyring.Get(r.service, cred.Name)
	if err == nil && secret != "" {
		log.Debug().Str("credential", cred.Name).Msg("credential resolved from keyring")
		return secret, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Warn().Err(err).Str("credential", cred.Name).Msg("keyring lookup failed, falling back to environment")
	}

	for _, env := range cred.EnvVars {
		if v := os.Getenv(env); v != "" {
			log.Debug().Str("credential", cred.Name).Str("env", env).Msg("credential resolved from environment")
			return v, nil
		}
	}

	return "", errdefs.NewConfigurationError(
		fmt.Sprintf("credential %q not found in keyring or environment (%v)", cred.Name, cred.EnvVars), nil)
}

// ResolveAll resolves every given credential, failing on the first missing
// one before any provider call is made.
func (r *Resolver) ResolveAll(creds ...Credential) (map[string]string, error) {
	out := make(map[string]string, len(creds))
	for _, cred := range creds {
		secret, err := r.Resolve(cred)
		if err != nil {
			return nil, err
		}
		out[cred.Name] = secret
	}
	return out, nil
}

// Store saves a credential secret to the OS keyring.
func (r *Resolver) Store(cred Credential, secret string) error {
	if err := keyring.Set(r.service, cred.Name, secret); err != nil {
		return fmt.Errorf("failed to store credential %q: %w", cred.Name, err)
	}
	return nil
}
