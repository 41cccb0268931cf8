package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/launchforge/launchforge/pkg/secrets"
)

// credentialsByName maps CLI names to the well-known provider credentials.
var credentialsByName = map[string]secrets.Credential{
	secrets.RepoHostToken.Name: secrets.RepoHostToken,
	secrets.BackendToken.Name:  secrets.BackendToken,
	secrets.HostingToken.Name:  secrets.HostingToken,
	secrets.ComputeToken.Name:  secrets.ComputeToken,
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
		Long: `Store provider credentials in the OS keyring. Credentials can also be
supplied via environment variables; the keyring takes precedence.`,
	}

	cmd.AddCommand(newAuthSetCommand())
	return cmd
}

func newAuthSetCommand() *cobra.Command {
	names := make([]string, 0, len(credentialsByName))
	for name := range credentialsByName {
		names = append(names, name)
	}

	return &cobra.Command{
		Use:   "set <credential>",
		Short: "Store one provider credential in the keyring",
		Long: `Store one provider credential. The secret is read from stdin, never
from the command line, so it does not land in shell history or process lists.`,
		Example: `  # Interactive (hidden input)
  forge auth set repohost-token

  # Piped
  pass show github/token | forge auth set repohost-token`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, ok := credentialsByName[args[0]]
			if !ok {
				return fmt.Errorf("unknown credential %q (one of %s)", args[0], strings.Join(names, ", "))
			}

			secret, err := readSecret(cred.Name)
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("empty secret")
			}

			if err := secrets.NewResolver().Store(cred, secret); err != nil {
				return err
			}
			fmt.Printf("stored %s\n", cred.Name)
			return nil
		},
	}
}

// readSecret reads the secret from stdin, hiding input on a terminal.
func readSecret(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Printf("%s: ", name)
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
