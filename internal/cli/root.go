// Package cli provides the command-line interface for cloudmanager.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/logging"
)

// Persistent flags
var (
	configFile string
	logLevel   string
	logFile    string
)

// logCloser closes the log file opened by the pre-run, if any.
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "cloudmanager",
	Short: "Cloud Manager - operator console for QEMU VMs and containers",
	Long: `Cloud Manager launches QEMU virtual machines from installer ISOs and
drives the docker (or podman) CLI, tracking every process it starts.

Run without a sub-command to open the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd == versionCmd || cmd.Name() == "completion" {
			return nil
		}
		// config init may be pointed at a file it is about to create.
		return loadConfig(cmd == configInitCmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
			logCloser = nil
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTTY() {
			return cmd.Help()
		}
		return runMenu(cmd, args)
	},
}

// isTTY returns true if stdin is a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.cloudmanager/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(vmCmd)
	rootCmd.AddCommand(dockerCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(guiCmd)
	rootCmd.AddCommand(statusCmd)
}

func loadConfig(allowMissing bool) error {
	file := configFile
	if allowMissing && file != "" {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			file = ""
		}
	}

	cfg, err := config.Load(file)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logFile != "" {
		opts.File = logFile
	}
	closer, err := logging.Initialize(opts)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	logCloser = closer

	if errs := config.Validate(cfg); len(errs) > 0 {
		if config.HasFatal(errs) {
			return fmt.Errorf("invalid configuration:\n%s", config.FormatValidationErrors(errs))
		}
		for _, e := range errs {
			logging.Logger.Warn("Config warning", "field", e.Field, "message", e.Message)
		}
	}

	config.Global = cfg
	logging.Logger.Debug("Configuration loaded", "base_dir", cfg.BaseDir, "runtime", cfg.ContainerRuntime)
	return nil
}
