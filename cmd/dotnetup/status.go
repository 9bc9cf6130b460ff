// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"dotnetup/internal/acquire"
	"dotnetup/pkg/dotver"

	"github.com/spf13/cobra"
)

var (
	statusMode string
	statusArch string

	statusCmd = &cobra.Command{
		Use:   "status [version]",
		Short: "Show tracked installations and their owners",
		Long: `Show every installation in the ownership ledger: its install id, the
resolved version, scope, install path, and the callers that own it.

With a pinned version argument, instead report whether that exact
installation is tracked and intact, printing its dotnet path (exit 2 when
it is not).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}
			if err := engine.Migrate(); err != nil {
				return failWith(err)
			}

			if len(args) == 1 {
				return statusForVersion(engine, args[0])
			}
			return statusForAll(engine)
		},
	}
)

func statusForVersion(engine *acquire.Engine, version string) error {
	mode, err := dotver.ParseMode(statusMode)
	if err != nil {
		return failWith(err)
	}

	path, found, err := engine.Status(acquire.Spec{
		Version:      version,
		Mode:         mode,
		Architecture: statusArch,
	})
	if err != nil {
		return failWith(err)
	}
	if !found {
		fmt.Println(SubtitleStyle.Render("Not installed."))
		return &ExitError{Code: 2}
	}

	fmt.Println(path)
	return nil
}

func statusForAll(engine *acquire.Engine) error {
	records, err := engine.Records()
	if err != nil {
		return failWith(err)
	}

	fmt.Println(TitleStyle.Render("Tracked Installations"))
	fmt.Println()

	if len(records) == 0 {
		fmt.Println(SubtitleStyle.Render("(none)"))
		return nil
	}

	for _, rec := range records {
		fmt.Println(PathStyle.Render(rec.InstallID.String()))
		fmt.Printf("  version: %s\n", rec.ResolvedVersion)
		fmt.Printf("  mode:    %s\n", rec.Mode)
		fmt.Printf("  scope:   %s\n", rec.Scope)
		fmt.Printf("  arch:    %s\n", rec.Architecture)
		fmt.Printf("  path:    %s\n", rec.Path)
		if len(rec.Owners) == 0 {
			fmt.Printf("  owners:  %s\n", SubtitleStyle.Render("(none)"))
		} else {
			fmt.Printf("  owners:  %s\n", strings.Join(rec.Owners, ", "))
		}
		fmt.Println()
	}
	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusMode, "mode", "runtime", "mode of the installation to check: runtime, aspnetcore, or sdk")
	statusCmd.Flags().StringVar(&statusArch, "arch", "", "architecture of the installation to check (default: machine architecture)")
}
