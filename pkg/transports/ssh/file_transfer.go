package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
)

// UploadFile copies a local file to the remote host via SFTP.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string, mode uint32) error {
	sftpClient, err := c.newSFTPClient()
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	log.Debug().Str("local", localPath).Str("remote", remotePath).Msg("uploading file")

	localFile, err := os.Open(localPath)
	if err != nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("failed to open local file: %w", err)}
	}
	defer localFile.Close()

	if err := sftpClient.MkdirAll(filepath.Dir(remotePath)); err != nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("failed to create remote directory: %w", err), IsTemporary: true}
	}

	remoteFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("failed to create remote file: %w", err), IsTemporary: true}
	}
	defer remoteFile.Close()

	if _, err := io.Copy(remoteFile, localFile); err != nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("failed to copy file content: %w", err), IsTemporary: true}
	}

	if err := sftpClient.Chmod(remotePath, os.FileMode(mode)); err != nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("failed to set file mode: %w", err)}
	}
	return nil
}

// DownloadFile copies a remote file to the local machine via SFTP.
func (c *Client) DownloadFile(ctx context.Context, remotePath, localPath string) error {
	sftpClient, err := c.newSFTPClient()
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	log.Debug().Str("remote", remotePath).Str("local", localPath).Msg("downloading file")

	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return &TransportError{Op: "download", Err: fmt.Errorf("failed to open remote file: %w", err), IsTemporary: true}
	}
	defer remoteFile.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return &TransportError{Op: "download", Err: fmt.Errorf("failed to create local directory: %w", err)}
	}

	localFile, err := os.Create(localPath)
	if err != nil {
		return &TransportError{Op: "download", Err: fmt.Errorf("failed to create local file: %w", err)}
	}
	defer localFile.Close()

	if _, err := io.Copy(localFile, remoteFile); err != nil {
		return &TransportError{Op: "download", Err: fmt.Errorf("failed to copy file content: %w", err), IsTemporary: true}
	}
	return nil
}

// newSFTPClient creates an SFTP client over the established connection.
func (c *Client) newSFTPClient() (*sftp.Client, error) {
	sshClient, err := c.getClient()
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, &TransportError{Op: "sftp-init", Err: fmt.Errorf("failed to create SFTP client: %w", err), IsTemporary: true}
	}
	return sftpClient, nil
}
