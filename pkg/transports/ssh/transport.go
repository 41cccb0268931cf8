// Package ssh provides the remote shell transport for provisioned compute
// instances: command execution with timeouts, file copy via SFTP, and a
// lightweight reachability probe used by readiness polling.
package ssh

import (
	"context"
	"time"
)

// Transport is the remote shell surface the lifecycle manager depends on.
type Transport interface {
	// Connect establishes an SSH connection to the remote host.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and releases all resources.
	Disconnect() error

	// Execute runs a command on the remote host, honoring ctx for timeout
	// and cancellation.
	Execute(ctx context.Context, cmd string) (*ExecResult, error)

	// UploadFile copies a local file to the remote host via SFTP.
	UploadFile(ctx context.Context, localPath, remotePath string, mode uint32) error

	// DownloadFile copies a remote file to the local machine via SFTP.
	DownloadFile(ctx context.Context, remotePath, localPath string) error
}

// ExecResult is the outcome of one remote command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the last n lines of stderr, for surfacing remote
// failures without flooding the caller.
func (r *ExecResult) StderrTail(n int) string {
	return tailLines(r.Stderr, n)
}

// TransportError is an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed, e.g. "connect", "execute", "upload".
	Op string

	// Err is the underlying error.
	Err error

	// IsTemporary indicates the error may succeed on retry.
	IsTemporary bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}
