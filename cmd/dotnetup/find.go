// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dotnetup/internal/acquire"
	"dotnetup/pkg/dotver"

	"github.com/spf13/cobra"
)

var (
	findMode        string
	findArch        string
	findRequirement string
	findCaller      string

	findCmd = &cobra.Command{
		Use:   "find <version>",
		Short: "Locate an existing .NET installation without installing",
		Long: `Search for an existing .NET installation that satisfies the version and
requirement, checking (in priority order) configured per-caller paths, the
configured shared path, tracked installations, the configured install
root, platform host records, and PATH. Prints the dotnet executable path
when one is found; exits 2 when nothing satisfies the request.

Requirements refine how the installed version must relate to the request:
  equal                exact match
  greaterThanOrEqual   same or newer
  lessThanOrEqual      same or older
  latestPatch          same major.minor, any patch (the default)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := dotver.ParseMode(findMode)
			if err != nil {
				return failWith(err)
			}
			req, err := dotver.ParseRequirement(findRequirement)
			if err != nil {
				return failWith(err)
			}

			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			path, found, err := engine.FindPath(cmd.Context(), acquire.Spec{
				Version:      args[0],
				Mode:         mode,
				Architecture: findArch,
			}, req, findCaller)
			if err != nil {
				return failWith(err)
			}
			if !found {
				fmt.Println(SubtitleStyle.Render("No matching installation found."))
				return &ExitError{Code: 2}
			}

			fmt.Println(path)
			return nil
		},
	}
)

func init() {
	findCmd.Flags().StringVar(&findMode, "mode", "runtime", "what to look for: runtime, aspnetcore, or sdk")
	findCmd.Flags().StringVar(&findArch, "arch", "", "target architecture (default: machine architecture)")
	findCmd.Flags().StringVar(&findRequirement, "requirement", "latestPatch", "how the installed version must relate to the request")
	findCmd.Flags().StringVar(&findCaller, "caller", "cli", "caller identifier, used for per-caller configured paths")
}
