package main

import (
	"fmt"

	"ambientmcp/internal/backend"
	"ambientmcp/internal/config"
	"ambientmcp/internal/credentials"
	"ambientmcp/internal/logging"

	"github.com/spf13/cobra"
)

const serverName = "ambient-code"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ambient-mcp",
		Short: "MCP server for the Ambient Code Platform backend API",
		Long: "ambient-mcp exposes read-only Ambient Code Platform operations (projects, " +
			"agentic sessions, workspaces, workflows and cluster info) as MCP tools over stdio.\n\n" +
			"The backend address comes from " + config.EnvBackendURL + " or the config file; the bearer " +
			"token from " + config.EnvBotToken + " or the OS keyring (see 'ambient-mcp token').",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.SetVersionTemplate("ambient-mcp {{.Version}}\n")

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides "+config.EnvLogLevel+")")

	root.AddCommand(
		newServeCommand(opts),
		newToolsCommand(),
		newCallCommand(opts),
		newTokenCommand(),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// load resolves the effective configuration and builds the process logger.
func (o *rootOptions) load() (*config.Config, *logging.AppLogger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger := logging.NewAppLogger(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger.Debug("Configuration loaded",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"metrics_addr", cfg.MetricsAddr,
	)
	return cfg, logger, nil
}

// newClient builds the backend client from cfg, falling back to the keyring
// when BOT_TOKEN is unset.
func newClient(cfg *config.Config, logger *logging.AppLogger, metrics *backend.Metrics) (*backend.Client, error) {
	client, err := backend.NewClient(backend.Options{
		BaseURL:     cfg.BaseURL,
		HealthURL:   cfg.HealthURL,
		Timeout:     cfg.Timeout,
		Credentials: credentials.NewStore(),
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to initialize backend client", "error", err)
		return nil, err
	}
	return client, nil
}
