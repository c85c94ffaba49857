// Package cli implements the bargain-hunter command tree and wires the
// configured components together.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bargain-hunter/config"
	"bargain-hunter/utils"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	EnvFile  string
	LogLevel string
}

// NewRootCommand creates the root command with its global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:     "bargain-hunter",
		Short:   "Rank marketplace listings by how good a bargain they are",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(opts, cmd.Flags().Changed("log-level"))
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(
		newSearchCommand(a),
		newServeCommand(a),
		newWorkerCommand(a),
		newSeedCommand(a),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(opts *RootOptions, levelFlagSet bool) error {
	a.cfg = config.Load(opts.EnvFile)

	level := a.cfg.LogLevel
	if levelFlagSet {
		level = opts.LogLevel
	}
	a.logger = utils.NewLoggerWithLevel(level)
	if !a.cfg.EnvFileLoaded {
		a.logger.Debug("[config] No %s file found, falling back to system env vars", opts.EnvFile)
	}
	return nil
}
