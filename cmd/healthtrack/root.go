package main

import (
	"github.com/spf13/cobra"

	"healthtrack/internal/config"
)

// app carries state shared by all subcommands once the root has run.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "healthtrack",
		Short:         "Personal health record tracker with direct-to-storage attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			a.cfg = cfg
			return configureLogger(cfg)
		},
	}

	cmd.Version = "0.1.0"
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newEnsureBucketCmd(a),
	)

	return cmd
}
