/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/johanix/dnskeytool/keytool"
	"github.com/spf13/cobra"
)

var permsDryRun bool

var PermsCmd = &cobra.Command{
	Use:     "permissions FILES...",
	Aliases: []string{"perms"},
	Short:   "Fix file permissions on key pairs",
	Long: `Bring the file permissions of the matched key pairs into line with the
policy: private key material owner-only, public key files world-readable.
FILES are shell patterns relative to the key directory; the .key extension
may be left off. Each pair is handled independently, so one unfixable file
does not stop the rest.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := PrepKeyStore()
		policy := Conf.PermPolicy()

		files, err := store.Glob(args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Println("No key files matched.")
			return
		}

		if permsDryRun {
			fmt.Println("Would change:")
		}
		failed := false
		for _, keyfile := range files {
			kr := &keytool.KeyRecord{
				KeyFile:     keyfile,
				PrivateFile: strings.TrimSuffix(keyfile, ".key") + ".private",
			}
			change, err := policy.CheckPair(kr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				failed = true
				continue
			}
			if !change {
				continue
			}
			fmt.Println(strings.TrimSuffix(filepath.Base(keyfile), ".key"))
			if permsDryRun {
				continue
			}
			if _, err := policy.ApplyPair(kr); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				failed = true
			}
		}
		if failed {
			os.Exit(2)
		}
	},
}

func init() {
	PermsCmd.Flags().BoolVarP(&permsDryRun, "dry-run", "n", false, "Don't perform action, just show files that would be changed")
}
