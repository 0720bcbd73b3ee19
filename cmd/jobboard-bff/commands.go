package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/iqautojobs/jobboard-bff/internal"
	"github.com/iqautojobs/jobboard-bff/internal/config"
	"github.com/iqautojobs/jobboard-bff/internal/log"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "jobboard-bff",
		Short: "Browser-facing session gateway for the job board",
		Long: `jobboard-bff keeps session tokens in httpOnly cookies and relays browser
requests to the job board API with a bearer header.`,
		Version:      BuildVersion,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults to $"+config.ConfigPathEnvVar+")")
	root.SetVersionTemplate(`{{printf "jobboard-bff version %s\n" .Version}}`)

	root.AddCommand(
		newServeCmd(&configPath),
		newValidateCmd(&configPath),
		newInitConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := log.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
				return fmt.Errorf("failed to configure logging: %w", err)
			}

			log.LogInfoWithFields("main", "Starting jobboard-bff", map[string]any{
				"version": BuildVersion,
				"config":  *configPath,
			})

			app, err := internal.NewJobBoard(cfg)
			if err != nil {
				return fmt.Errorf("failed to create gateway: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate configuration, then print it with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Result: FAIL\n  - %v\n", err)
				return err
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nResult: PASS\n", data)
			return nil
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write a config file populated with the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.DefaultYAML()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default config at: %s\n", args[0])
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of jobboard-bff",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobboard-bff version %s\n", BuildVersion)
		},
	}
}

