// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dotnetup/internal/acquire"
	"dotnetup/pkg/dotver"

	"github.com/spf13/cobra"
)

var (
	acquireMode   string
	acquireArch   string
	acquireCaller string

	acquireCmd = &cobra.Command{
		Use:   "acquire [version]",
		Short: "Install (or reuse) a .NET runtime or SDK",
		Long: `Install a .NET runtime or SDK into the per-user directory, or reuse an
intact installation that is already tracked. Prints the path to the dotnet
executable on success.

The version may be a channel ("8.0"), a bare major ("8"), an SDK feature
band ("7.0.3xx"), or a pinned version ("8.0.8"). Channels resolve to their
latest published version at acquire time. With no version at all, the
newest actively supported channel is installed.

Concurrent acquisitions of the same version, from any number of processes,
coordinate through a lock so exactly one performs the physical install.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := dotver.ParseMode(acquireMode)
			if err != nil {
				return failWith(err)
			}

			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			var version string
			if len(args) > 0 {
				version = args[0]
			}
			path, err := engine.Acquire(cmd.Context(), acquire.Spec{
				Version:      version,
				Mode:         mode,
				Architecture: acquireArch,
			}, acquireCaller)
			if err != nil {
				return failWith(err)
			}

			fmt.Println(path)
			return nil
		},
	}

	acquireGlobalCmd = &cobra.Command{
		Use:   "acquire-global <version>",
		Short: "Install (or adopt) a machine-wide .NET SDK",
		Long: `Install a machine-wide .NET SDK through the distribution's package
manager, or adopt one that is already present. Requires a supported Linux
distribution and non-interactive sudo (or root). Prints the path to the
dotnet executable on success.

Global installs are always SDKs; the distribution's support policy decides
which channels are available and resolution walks back to an older
supported channel when the requested one is not packaged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			path, err := engine.AcquireGlobal(cmd.Context(), acquire.Spec{
				Version: args[0],
			}, acquireCaller)
			if err != nil {
				return failWith(err)
			}

			fmt.Println(path)
			return nil
		},
	}
)

func init() {
	acquireCmd.Flags().StringVar(&acquireMode, "mode", "runtime", "what to install: runtime, aspnetcore, or sdk")
	acquireCmd.Flags().StringVar(&acquireArch, "arch", "", "target architecture (default: machine architecture)")
	acquireCmd.Flags().StringVar(&acquireCaller, "caller", "cli", "identifier registered as the install's owner")

	acquireGlobalCmd.Flags().StringVar(&acquireCaller, "caller", "cli", "identifier registered as the install's owner")
}
