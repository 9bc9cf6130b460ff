// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dotnetup/internal/ledger"

	"github.com/spf13/cobra"
)

var (
	uninstallCaller string
	uninstallForce  bool

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <install-id>",
		Short: "Release ownership of an installation",
		Long: `Detach the caller from an installation. The install directory is deleted
only when no owners remain and no file under it is held open; otherwise
the installation is kept (or the deletion deferred) and stays tracked.

With --force the owner check is skipped and deletion proceeds regardless
of remaining owners.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			removal, err := engine.Uninstall(cmd.Context(), ledger.InstallID(args[0]), uninstallCaller, uninstallForce)
			if err != nil {
				return failWith(err)
			}

			printRemoval(removal)
			return nil
		},
	}

	uninstallAllCmd = &cobra.Command{
		Use:   "uninstall-all",
		Short: "Remove every locally managed installation",
		Long: `Force-remove every installation the engine manages, regardless of owners.
Machine-wide installations are left alone. Installations with files held
open are deferred and stay tracked for a later attempt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}

			removals, err := engine.UninstallAll(cmd.Context())
			if err != nil {
				return failWith(err)
			}

			if len(removals) == 0 {
				fmt.Println(SubtitleStyle.Render("Nothing to remove."))
				return nil
			}
			for _, removal := range removals {
				printRemoval(removal)
			}
			return nil
		},
	}
)

func printRemoval(r ledger.Removal) {
	switch r.Status {
	case ledger.RemovalDeleted:
		fmt.Printf("%s %s deleted\n", SuccessStyle.Render("✓"), PathStyle.Render(r.InstallID.String()))
	case ledger.RemovalKept:
		fmt.Printf("%s %s kept (other owners remain)\n", SubtitleStyle.Render("·"), PathStyle.Render(r.InstallID.String()))
	case ledger.RemovalDeferred:
		fmt.Printf("%s %s deferred: %s is held open\n", WarningStyle.Render("!"), PathStyle.Render(r.InstallID.String()), r.HeldOpenBy)
	case ledger.RemovalNotFound:
		fmt.Printf("%s %s not tracked\n", SubtitleStyle.Render("·"), PathStyle.Render(r.InstallID.String()))
	}
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallCaller, "caller", "cli", "identifier whose ownership is released")
	uninstallCmd.Flags().BoolVar(&uninstallForce, "force", false, "delete even when other owners remain")
}
