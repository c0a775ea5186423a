// Package cli provides the command-line interface for biostat.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dexinGONG/biostat/internal/config"
	"github.com/dexinGONG/biostat/internal/logging"
)

// Version information (set at build time).
var Version = "0.1.0"

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {

	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "biostat",
		Short: "Logistic regression and survival analysis of clinical data",
		Long: `biostat runs three analyses:

  logistic   physical fitness class of adults against sex, height and weight
  survival   Kaplan-Meier, Nelson-Aalen and log-rank comparison of two treatments
  cox        proportional hazards regression of patient survival

Tables are written to standard output and figures to PNG files.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Verbose)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				log.Info("using config file", zap.String("path", cfg.File))
			}
			log.Info("resolving paths", zap.String("base_dir", cfg.BaseDir))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = GetLogger(cmd.Context()).Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./biostat.yaml)")
	rootCmd.PersistentFlags().String("base-dir", "", "Directory relative paths are resolved against")
	rootCmd.PersistentFlags().String("figures-dir", "", "Directory receiving figure files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(NewVersionCommand(Version))
	rootCmd.AddCommand(NewLogisticCommand())
	rootCmd.AddCommand(NewSurvivalCommand())
	rootCmd.AddCommand(NewCoxCommand())
	rootCmd.AddCommand(NewAllCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) (*config.Config, error) {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("configuration not loaded")
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// setKey routes a command flag to a nested configuration key.
func setKey(cmd *cobra.Command, flag, key string) {
	_ = cmd.Flags().SetAnnotation(flag, config.KeyAnnotation, []string{key})
}
