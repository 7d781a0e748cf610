package main

import (
	"fmt"
	"strings"
	"time"

	"ambientmcp/internal/mcp"
	"ambientmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newCallCommand(opts *rootOptions) *cobra.Command {
	var pretty bool
	var width int

	cmd := &cobra.Command{
		Use:   "call <tool> [key=value...]",
		Short: "Invoke one tool against the backend and print its result",
		Example: "  ambient-mcp call list_projects\n" +
			"  ambient-mcp call get_workspace_file project_name=demo session_name=s1 path=README.md --pretty",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			client, err := newClient(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			srv := mcp.NewServer(client, logger, mcp.ServerInfo{Name: serverName, Version: version})
			text, isError, err := srv.Call(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}

			out := text + "\n"
			if pretty {
				out, err = ui.RenderResult(text, isError, ui.DetectGlamourStyle(200*time.Millisecond), width)
				if err != nil {
					return err
				}
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
				return err
			}

			if isError {
				return errSilent
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "render the result for a terminal")
	cmd.Flags().IntVar(&width, "width", 100, "wrap width for --pretty")
	return cmd
}

// parseToolArgs turns key=value pairs into tool arguments. Values are kept
// verbatim, including any further '=' characters.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid argument %q, want key=value", pair)
		}
		args[strings.TrimSpace(key)] = value
	}
	return args, nil
}
