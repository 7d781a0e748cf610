package main

import (
	"fmt"

	"ambientmcp/internal/mcp"
	"ambientmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newToolsCommand() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), ui.RenderCatalog("ambient-mcp tools", catalogEntries(), width))
			return err
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap descriptions at this width")
	return cmd
}

func catalogEntries() []ui.ToolEntry {
	specs := mcp.Catalog()
	entries := make([]ui.ToolEntry, 0, len(specs))
	for _, spec := range specs {
		params := make([]string, 0, len(spec.Params))
		for _, p := range spec.Params {
			params = append(params, p.Name)
		}
		entries = append(entries, ui.ToolEntry{
			Name:        spec.Name,
			Category:    spec.Category,
			Description: spec.Description,
			Params:      params,
		})
	}
	return entries
}
