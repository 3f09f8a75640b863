package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/config"
	"gitea.kood.tech/petrkubec/linkvibez/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "linkvibez",
		Short: "LinkVibez dating backend",
		Long: `LinkVibez serves the swipe deck, matches and chat API.

Configuration comes from an optional YAML file and LINKVIBEZ_* environment
variables; DATABASE_URL, JWT_SECRET and GEMINI_API_KEY are honoured too.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("LINKVIBEZ_CONFIG", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the API server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := bootstrap()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				return serve(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "relay",
			Short: "Run the AI relay that keeps the API key server-side",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := bootstrap()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				return serveRelay(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := bootstrap()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				return migrate(cmd.Context(), cfg, log)
			},
		},
	)
	return root
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
