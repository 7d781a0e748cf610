package main

import (
	"fmt"
	"os"

	"ambientmcp/internal/config"
	"ambientmcp/internal/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(newConfigShowCommand(opts), newConfigInitCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file and environment applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			healthURL, err := config.ResolveHealthURL(cfg.BaseURL, cfg.HealthURL)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.KeyValue("file", opts.path()))
			fmt.Fprintln(out, ui.KeyValue("health", healthURL+"/health"))
			fmt.Fprintln(out)
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Wrote "+path))
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// path is the config file the command operates on.
func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.ConfigPath()
}
