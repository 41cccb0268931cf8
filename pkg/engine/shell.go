package engine

import (
	"context"

	"github.com/launchforge/launchforge/pkg/transports/ssh"
)

// sshShell is the production Shell, keyed to one SSH user and private key.
type sshShell struct {
	user    string
	keyPath string
}

// NewShell creates a Shell that reaches instances over SSH.
func NewShell(user, keyPath string) Shell {
	return &sshShell{user: user, keyPath: keyPath}
}

func (s *sshShell) config(host string) *ssh.Config {
	cfg := ssh.DefaultConfig(host, s.user)
	cfg.PrivateKeyPath = s.keyPath
	return cfg
}

func (s *sshShell) Probe(ctx context.Context, host string) error {
	return ssh.Probe(ctx, s.config(host))
}

func (s *sshShell) Open(ctx context.Context, host string) (ssh.Transport, error) {
	client, err := ssh.NewClient(s.config(host))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
