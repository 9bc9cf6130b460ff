// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dotnetup/internal/releases"
	"dotnetup/pkg/dotver"

	"github.com/spf13/cobra"
)

var (
	listVersionsMode string

	listVersionsCmd = &cobra.Command{
		Use:   "list-versions",
		Short: "Show published .NET release channels",
		Long: `Show every release channel the metadata feed publishes, newest first,
with the latest version for the requested mode and the channel's support
phase. Cached metadata is used when the feed is unreachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := dotver.ParseMode(listVersionsMode)
			if err != nil {
				return failWith(err)
			}

			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			listings, err := engine.ListVersions(cmd.Context(), mode)
			if err != nil {
				return failWith(err)
			}

			fmt.Println(TitleStyle.Render("Published .NET Channels"))
			fmt.Println()
			fmt.Printf("%-10s %-16s %s\n", "CHANNEL", "LATEST "+mode.String(), "SUPPORT")
			for _, l := range listings {
				phase := string(l.Channel.SupportPhase)
				switch l.Channel.SupportPhase {
				case releases.PhaseActive, releases.PhaseGoLive:
					phase = SuccessStyle.Render(phase)
				case releases.PhaseMaintenance:
					phase = WarningStyle.Render(phase)
				case releases.PhaseEOL:
					phase = ErrorStyle.Render(phase)
				}
				fmt.Printf("%-10s %-16s %s\n", l.Channel.ChannelVersion, l.Latest, phase)
			}
			return nil
		},
	}
)

func init() {
	listVersionsCmd.Flags().StringVar(&listVersionsMode, "mode", "runtime", "which latest version to show: runtime, aspnetcore, or sdk")
}
