// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for dotnetup.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dotnetup/internal/acquire"
	"dotnetup/internal/config"
	"dotnetup/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom settings file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "dotnetup",
		Short: "Acquire and manage .NET runtimes and SDKs",
		Long: TitleStyle.Render("dotnetup") + SubtitleStyle.Render(" - Acquire and manage .NET runtimes and SDKs") + `

dotnetup resolves version expressions like "8.0" or "7.0.3xx" against the
published release channels, installs the matching runtime or SDK into a
per-user directory, and tracks which tools depend on which installation so
shared installs are only removed when the last owner lets go.

Concurrent acquisitions of the same version coordinate across processes,
so parallel builds converge on a single physical install.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Acquire a runtime: dotnetup acquire 8.0
  2. Point your tool at the printed dotnet path
  3. Release it later with: dotnetup uninstall <install-id>

` + SubtitleStyle.Render("Examples:") + `
  dotnetup acquire 8.0                Install the latest 8.0 runtime
  dotnetup acquire 8.0 --mode sdk     Install the latest 8.0 SDK
  dotnetup acquire-global 8.0         Machine-wide SDK via the distro
  dotnetup find 8.0 --mode sdk        Locate an existing install
  dotnetup list-versions              Show published channels
  dotnetup status                     Show tracked installations`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is $HOME/.config/dotnetup/settings.cue)")

	// Add subcommands
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(acquireGlobalCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(uninstallAllCmd)
	rootCmd.AddCommand(listVersionsCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadSettings reads the settings file (honoring --config) and environment
// overrides. Load failures surface the issue catalog guidance and abort.
func loadSettings(ctx context.Context) (*config.Settings, error) {
	settings, err := config.NewProvider().Load(ctx, config.LoadOptions{
		SettingsFilePath: cfgFile,
	})
	if err != nil {
		return nil, failWith(err)
	}
	if verbose {
		settings.Verbose = true
	}
	return settings, nil
}

// newEngine wires an engine from loaded settings with the CLI's styled
// notifier and a logger whose level follows --verbose.
func newEngine(ctx context.Context) (*acquire.Engine, error) {
	settings, err := loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	if settings.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	engine, err := acquire.New(settings,
		acquire.WithNotifier(newConsoleNotifier()),
		acquire.WithLogger(logger))
	if err != nil {
		return nil, failWith(err)
	}
	return engine, nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
