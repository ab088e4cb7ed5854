/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/johanix/dnskeytool/keytool"
	"github.com/spf13/cobra"
)

var (
	archiveRecurse bool
	archiveDryRun  bool
	archiveAuto    bool
)

var ArchiveCmd = &cobra.Command{
	Use:   "archive ZONE TARGET",
	Short: "Move expired keys of a zone into an archive directory",
	Long: `Move the key files of all keys in DEL state into TARGET. A relative TARGET
is resolved inside the key directory. With --auto the keys are sorted into
per-year subdirectories based on their inactivation date.

Expired key-signing keys are archived like any other key, but their count is
reported separately since a KSK still referenced by a DS record at the parent
should not have reached DEL state in the first place.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		zone := PrepZone(args[0])
		target := args[1]
		store := PrepKeyStore()

		keys, err := store.ListKeys(zone, archiveRecurse)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		now := time.Now().UTC()
		plan := keytool.PlanArchive(keys, store, target, archiveAuto, now)
		fmt.Printf("Found %d expired keys, %d of which are key-signing keys.\n",
			plan.Expired, plan.KSKs)
		if len(plan.Moves) == 0 {
			return
		}

		if archiveDryRun {
			fmt.Println("Would move:")
			for _, m := range plan.Moves {
				fmt.Printf("   %s\n", m)
			}
			return
		}

		moved, errs := plan.Execute()
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Printf("Archived %d expired keys (%d files).\n", plan.Expired, moved)
		if len(errs) > 0 {
			os.Exit(2)
		}
	},
}

func init() {
	ArchiveCmd.Flags().BoolVarP(&archiveRecurse, "recurse", "r", false, "Archive keys for all zones below the given one")
	ArchiveCmd.Flags().BoolVarP(&archiveDryRun, "dry-run", "n", false, "Don't perform action, just show plan")
	ArchiveCmd.Flags().BoolVar(&archiveAuto, "auto", false, "Sort keys into year subdirectories based on inactivation date")
}
