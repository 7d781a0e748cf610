package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ambientmcp/internal/config"
	"ambientmcp/internal/credentials"
	"ambientmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token stored in the OS keyring",
		Long: "The keyring token is used when " + config.EnvBotToken + " is not set. " +
			"It is never written to the config file.",
	}
	cmd.AddCommand(newTokenSetCommand(), newTokenDeleteCommand(), newTokenStatusCommand())
	return cmd
}

func newTokenSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store a token read from the first line of stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := credentials.NewStore().SetToken(token); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Token stored"))
			return err
		},
	}
}

func newTokenDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.NewStore().DeleteToken(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Token deleted"))
			return err
		},
	}
}

func newTokenStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token source the server would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), tokenStatus(os.Getenv(config.EnvBotToken), credentials.NewStore().HasToken()))
			return err
		},
	}
}

// tokenStatus reports both sources and which one wins. The token itself is
// never printed.
func tokenStatus(envToken string, stored bool) string {
	envSet := strings.TrimSpace(envToken) != ""

	active := "none"
	switch {
	case envSet:
		active = config.EnvBotToken
	case stored:
		active = "keyring"
	}

	lines := []string{
		ui.KeyValue(config.EnvBotToken, yesNo(envSet, "set", "not set")),
		ui.KeyValue("keyring", yesNo(stored, "stored", "empty")),
		ui.KeyValue("active", active),
	}
	return strings.Join(lines, "\n") + "\n"
}

func readToken(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return "", fmt.Errorf("no token on stdin")
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return token, nil
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
