// Package cmd is the Cobra command-line front end: it loads an
// altar.yaml config, wires the engine together, drives the annealing
// loop and reports the result, following the same root/run command
// split.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	profilePath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "altar",
	Short: "Transitional Markov chain Monte Carlo sampler",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample the posterior distribution described by an altar.yaml config",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("cmd: invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		annealer, model, err := buildAnnealer(cfg, profilePath)
		if err != nil {
			return err
		}

		return annealer.Posterior(model)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and strictly validate an altar.yaml config without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if _, err := buildParameterSets(cfg.Model.Parameters); err != nil {
			return err
		}
		logrus.Infof("altar: %s is valid (%d samples, %d parameter sets)", configPath, cfg.Samples, len(cfg.Model.Parameters))
		return nil
	},
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "altar.yaml", "Path to the run configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&profilePath, "profile", "", "Optional path to export per-beta-step timing CSV")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
