/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johanix/dnskeytool/cli"
	"github.com/johanix/dnskeytool/keytool"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dnskeytool",
	Short: "dnskeytool manages the lifecycle of DNSSEC keys stored as BIND key files",
	Long: `dnskeytool derives the lifecycle state of DNSSEC keys from the timestamps
embedded in their on-disk key files, schedules successor keys so a zone never
loses active-key coverage, and can cross-check the computed state against
what the zone's nameservers actually serve.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", keytool.DefaultCfgFile))
	rootCmd.PersistentFlags().StringVar(&keytool.Globals.KeyDir, "dir", "",
		"directory containing key files (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&keytool.Globals.Resolver, "resolver", "",
		"resolver address to use instead of /etc/resolv.conf")
	rootCmd.PersistentFlags().BoolVarP(&keytool.Globals.Debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&keytool.Globals.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(cli.ListCmd)
	rootCmd.AddCommand(cli.RotateCmd)
	rootCmd.AddCommand(cli.ArchiveCmd)
	rootCmd.AddCommand(cli.PermsCmd)
	rootCmd.AddCommand(cli.VersionCmd)
}

// initConfig reads in config file and ENV variables if set. Unlike a daemon,
// a missing config file is fine here: every setting has a usable default.
func initConfig() {
	explicit := cfgFile != ""
	if explicit {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(keytool.DefaultCfgFile)
	}

	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err == nil {
		if keytool.Globals.Verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if explicit {
		log.Fatalf("Could not load config %s: Error: %v", cfgFile, err)
	}

	conf, err := keytool.ParseConfig()
	if err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}
	cli.Conf = conf

	if err := keytool.Globals.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if conf.Log.File != "" {
		keytool.SetupLogging(conf.Log.File)
	} else {
		keytool.SetupCliLogging()
	}
}
