// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"dotnetup/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dotnetup settings",
	Long: `Manage dotnetup settings.

Settings are stored in:
  - Linux: ~/.config/dotnetup/settings.cue
  - macOS: ~/Library/Application Support/dotnetup/settings.cue
  - Windows: %APPDATA%\dotnetup\settings.cue

Any field can also be overridden with DOTNETUP_-prefixed environment
variables (DOTNETUP_STATE_DIR, DOTNETUP_VERBOSE, ...).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSettings(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefaultSettings()
			if err != nil {
				return failWith(err)
			}
			fmt.Printf("%s Created default settings at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective settings as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(config.GenerateCUE(settings))
			return nil
		},
	})
}

func showSettings(cmd *cobra.Command) error {
	settings, err := loadSettings(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Current Settings"))
	fmt.Println()

	if cfgFile != "" {
		fmt.Printf("%s: %s\n", PathStyle.Render("Settings file"), cfgFile)
	} else if cfgDir, dirErr := config.ConfigDir(); dirErr == nil {
		fmt.Printf("%s: %s\n", PathStyle.Render("Settings file"),
			filepath.Join(cfgDir, config.SettingsFileName+"."+config.SettingsFileExt))
	}
	if stateDir := settings.StateDir; stateDir != "" {
		fmt.Printf("%s: %s\n", PathStyle.Render("State dir"), stateDir)
	} else if stateDir, dirErr := config.StateDir(); dirErr == nil {
		fmt.Printf("%s: %s\n", PathStyle.Render("State dir"), stateDir)
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", PathStyle.Render("releases_index_url"), SuccessStyle.Render(settings.ReleasesIndexURL))
	fmt.Printf("%s: %s\n", PathStyle.Render("install_script_url"), SuccessStyle.Render(settings.InstallScriptURL))

	fmt.Println()
	fmt.Printf("%s:\n", PathStyle.Render("cache"))
	fmt.Printf("  ttl_minutes: %d\n", settings.Cache.TTLMinutes)
	fmt.Printf("  ttl_multiplier: %g\n", settings.Cache.TTLMultiplier)

	fmt.Println()
	fmt.Printf("%s:\n", PathStyle.Render("timeouts"))
	fmt.Printf("  install_seconds: %d\n", settings.Timeouts.InstallSeconds)
	fmt.Printf("  lock_seconds: %d\n", settings.Timeouts.LockSeconds)
	fmt.Printf("  resolution_seconds: %d\n", settings.Timeouts.ResolutionSeconds)

	fmt.Println()
	fmt.Printf("%s: %v\n", PathStyle.Render("strict_architecture"), settings.StrictArchitecture)
	fmt.Printf("%s: %v\n", PathStyle.Render("skip_host_record_lookup"), settings.SkipHostRecordLookup)
	fmt.Printf("%s: %v\n", PathStyle.Render("verbose"), settings.Verbose)

	fmt.Println()
	fmt.Printf("%s:\n", PathStyle.Render("existing_paths"))
	if settings.SharedExistingPath != "" {
		fmt.Printf("  shared: %s\n", settings.SharedExistingPath)
	}
	if len(settings.ExistingPaths) == 0 && settings.SharedExistingPath == "" {
		fmt.Printf("  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, entry := range settings.ExistingPaths {
		fmt.Printf("  - %s: %s\n", entry.Caller, entry.Path)
	}

	return nil
}
