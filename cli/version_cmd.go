/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"

	"github.com/johanix/dnskeytool/keytool"
	"github.com/spf13/cobra"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the app, more or less verbosely",
	Run: func(cmd *cobra.Command, args []string) {
		if keytool.Globals.Verbose {
			fmt.Printf("This is %s, version %s, compiled on %v\n",
				keytool.Globals.App.Name, keytool.Globals.App.Version, keytool.Globals.App.Date)
		} else {
			fmt.Printf("%s version %s\n", keytool.Globals.App.Name, keytool.Globals.App.Version)
		}
	},
}
