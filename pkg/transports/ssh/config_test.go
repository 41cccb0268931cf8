package ssh

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestKey writes a syntactically valid (unencrypted) dummy key file and
// returns its path. The key content never gets parsed in these tests.
func writeTestKey(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, []byte("dummy"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}
	return path
}

func TestConfigValidate(t *testing.T) {
	keyPath := writeTestKey(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing host", func(c *Config) { c.Host = "" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"missing user", func(c *Config) { c.User = "" }, true},
		{"missing key file", func(c *Config) { c.PrivateKeyPath = "/nonexistent/key" }, true},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }, true},
		{"zero command timeout", func(c *Config) { c.CommandTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("10.0.0.1", "root")
			cfg.PrivateKeyPath = keyPath
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := DefaultConfig("10.0.0.1", "root")
	if got := cfg.Address(); got != "10.0.0.1:22" {
		t.Errorf("Address() = %q, want %q", got, "10.0.0.1:22")
	}
	cfg.Port = 2222
	if got := cfg.Address(); got != "10.0.0.1:2222" {
		t.Errorf("Address() = %q, want %q", got, "10.0.0.1:2222")
	}
}

func TestTailLines(t *testing.T) {
	in := "one\ntwo\nthree\nfour\n"
	if got := tailLines(in, 2); got != "three\nfour" {
		t.Errorf("tailLines() = %q", got)
	}
	if got := tailLines("only", 5); got != "only" {
		t.Errorf("tailLines() short input = %q", got)
	}
}

func TestExecResultStderrTail(t *testing.T) {
	r := &ExecResult{Stderr: "a\nb\nc"}
	if got := r.StderrTail(1); got != "c" {
		t.Errorf("StderrTail() = %q", got)
	}
}
