package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/config"
	"airdesk/internal/daemonrun"
)

type runFunc func(ctx context.Context, cfg *config.Config, opts daemonrun.Options) error

func newRootCommand() *cobra.Command {
	return newRootCommandWith(daemonrun.Run)
}

// newRootCommandWith builds the daemon command around run so tests can
// observe the resolved configuration without starting the daemon.
func newRootCommandWith(run runFunc) *cobra.Command {
	var configPath string
	var opts daemonrun.Options
	var bind string

	cmd := &cobra.Command{
		Use:           "airdeskd",
		Short:         "AirDesk call intake daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Paths.APIBind = strings.TrimSpace(bind)
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Human-readable development logging")
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}
