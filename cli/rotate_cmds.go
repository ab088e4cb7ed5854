/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/gookit/goutil/dump"
	"github.com/johanix/dnskeytool/keytool"
	"github.com/spf13/cobra"
)

var (
	rotateType    string
	rotateDryRun  bool
	rotatePrepub  string
	rotateLife    string
	rotateOverlap string
	rotatePostpub string
)

var RotateCmd = &cobra.Command{
	Use:   "rotate ZONE",
	Short: "Create successor keys based on lifetime so a zone never loses active-key coverage",
	Long: `Inspect the keys of a zone and, when the most recently activated key has no
scheduled successor, generate one with timing derived from the rotation
intervals: the successor activates --overlap before the current key goes
inactive, is published --prepublish before that, stays active for --lifetime
and remains published --postpublish after deactivation.

The decision is idempotent: when a successor is already scheduled, nothing
happens. With --dry-run the full plan is computed and shown but no key
material is generated and no file is touched.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		zone := PrepZone(args[0])
		ktype := PrepKeyType(rotateType, true)
		store := PrepKeyStore()

		params, err := parseRotationParams()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		keys, err := store.ListKeys(zone, false)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		planner := keytool.Planner{Params: params}
		result, err := planner.Plan(keytool.KeySet{Keys: keys}, zone, ktype, time.Now().UTC())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
		if result.Empty() {
			fmt.Println("Nothing to do.")
			return
		}

		if keytool.Globals.Debug {
			dump.P(result)
		}

		if rotateDryRun {
			fmt.Println("Would execute:")
			for _, repair := range result.Repairs {
				fmt.Printf("   %s\n", repair)
			}
			for _, plan := range result.Successors {
				fmt.Printf("   %s\n", plan)
			}
			return
		}

		for _, repair := range result.Repairs {
			err := store.SetTimes(repair.Key, time.Time{}, time.Time{}, repair.Inactive, repair.Delete)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(2)
			}
			if keytool.Globals.Verbose {
				fmt.Printf("%s\n", repair)
			}
		}

		gen := keytool.NewGenerator(store)
		gen.Perms = Conf.PermPolicy()
		for _, plan := range result.Successors {
			kr, err := gen.CreateKey(plan)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(2)
			}
			fmt.Printf("Created successor key %s (activates %s)\n",
				kr.Name(), keytool.FormatDNSTime(kr.Activate))
		}
	},
}

func parseRotationParams() (keytool.RotationParams, error) {
	params := keytool.DefaultRotationParams()
	intervals := []struct {
		arg  string
		dst  *time.Duration
		name string
	}{
		{rotatePrepub, &params.PrePublish, "prepublish"},
		{rotateLife, &params.Lifetime, "lifetime"},
		{rotateOverlap, &params.Overlap, "overlap"},
		{rotatePostpub, &params.PostPublish, "postpublish"},
	}
	for _, iv := range intervals {
		if iv.arg == "" {
			continue
		}
		d, err := keytool.ParseInterval(iv.arg)
		if err != nil {
			return params, fmt.Errorf("bad %s interval: %v", iv.name, err)
		}
		*iv.dst = d
	}
	return params, params.Validate()
}

func init() {
	RotateCmd.Flags().StringVarP(&rotateType, "type", "t", "", "Key type to rotate (ZSK|KSK)")
	RotateCmd.Flags().BoolVarP(&rotateDryRun, "dry-run", "n", false, "Don't perform action, just show plan")
	RotateCmd.Flags().StringVarP(&rotatePrepub, "prepublish", "b", "", "Time to publish keys before their activation date (default 1w)")
	RotateCmd.Flags().StringVarP(&rotateLife, "lifetime", "l", "", "Active lifetime of keys (default 2w)")
	RotateCmd.Flags().StringVarP(&rotateOverlap, "overlap", "o", "", "Overlap between active keys, from the end of the active phase (default 1w)")
	RotateCmd.Flags().StringVarP(&rotatePostpub, "postpublish", "a", "", "Time to keep keys published after their deactivation date (default 1w)")
	RotateCmd.MarkFlagRequired("type")
}
