/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/johanix/dnskeytool/keytool"
	"github.com/spf13/cobra"
)

var (
	listRecurse     bool
	listStates      []string
	listType        string
	listWhen        string
	listSort        string
	listCalendar    bool
	listPerms       bool
	listPrintRecord bool
	listVerifyNS    bool
	listServers     []string
	listPreferV4    bool
	listPreferV6    bool
)

var stateChoices = []string{"PUB", "ACT", "INAC", "DEL", "FUT"}
var sortChoices = []string{"ZONE", "ALG", "ID", "STATE", "DATE"}

var ListCmd = &cobra.Command{
	Use:   "list ZONE",
	Short: "List currently present keys and their timing",
	Long: `List the key pairs found for a zone together with their lifecycle state
(FUT/PUB/ACT/INAC/DEL) computed from the timestamps embedded in the key files.
With --verify-ns the listing is extended with what the zone's nameservers
actually serve: a Parent:DS column and one P/S column per server.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		zone := PrepZone(args[0])
		store := PrepKeyStore()

		when := time.Now().UTC()
		if listWhen != "" {
			var err error
			when, err = keytool.ParseTime(listWhen)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}

		states, err := parseStates(listStates)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		sortField := keytool.SortNone
		if listSort != "" {
			choice, err := keytool.ShortestUnique(listSort, sortChoices)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			sortField = keytool.StringToSortField[choice]
		}

		keys, err := store.ListKeys(zone, listRecurse)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ks := keytool.KeySet{Keys: keys}
		ks = ks.FilterState(states, when)
		ks = ks.FilterType(PrepKeyType(listType, false))
		if sortField != keytool.SortNone {
			ks = ks.SortBy(sortField, when)
		}

		opts := keytool.ListOptions{
			When:        when,
			Recursive:   listRecurse,
			Calendar:    listCalendar,
			ShowPerms:   listPerms,
			PrintRecord: listPrintRecord,
			PermPolicy:  Conf.PermPolicy(),
		}

		if listVerifyNS || len(listServers) > 0 {
			resolver, err := keytool.NewResolver(keytool.Globals.Resolver,
				preferV4(), Conf.QueryTimeout())
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			verifier := keytool.NewVerifier(resolver, listServers)
			zones := ks.Zones()
			fmt.Printf("Collecting state of zone: %s\n", strings.Join(zones, " "))
			verifier.QueryZones(zones)
			opts.Verifier = verifier
		}

		if !listRecurse {
			fmt.Printf("Zone: %s\n", zone)
		}
		fmt.Println(keytool.FormatKeyTable(ks.Keys, opts))
	},
}

func parseStates(args []string) ([]keytool.KeyState, error) {
	var states []keytool.KeyState
	for _, arg := range args {
		choice, err := keytool.ShortestUnique(arg, stateChoices)
		if err != nil {
			return nil, err
		}
		states = append(states, keytool.StringToKeyState[choice])
	}
	return states, nil
}

func preferV4() bool {
	if listPreferV4 && listPreferV6 {
		fmt.Printf("Error: -4 and -6 are mutually exclusive\n")
		os.Exit(1)
	}
	if listPreferV4 {
		return true
	}
	if Conf != nil && Conf.Dns.PreferV4 {
		return true
	}
	return false
}

func init() {
	ListCmd.Flags().BoolVarP(&listRecurse, "recurse", "r", false, "Show keys for all zones below the given one")
	ListCmd.Flags().StringArrayVarP(&listStates, "state", "s", nil, "Filter keys by current state (PUB|ACT|INAC|DEL|FUT)")
	ListCmd.Flags().StringVarP(&listType, "type", "t", "", "Filter keys by type (ZSK|KSK)")
	ListCmd.Flags().StringVar(&listWhen, "when", "", "Compute states at DATETIME instead of now")
	ListCmd.Flags().StringVarP(&listSort, "sort", "o", "", "Sort keys by attribute (ZONE|ALG|ID|STATE|DATE)")
	ListCmd.Flags().BoolVarP(&listCalendar, "calendar", "c", false, "Show relative time to each state change instead of only the next")
	ListCmd.Flags().BoolVarP(&listPerms, "permissions", "p", false, "Print asterisk for keys with bad permissions")
	ListCmd.Flags().BoolVar(&listPrintRecord, "print-record", false, "Output DNSKEY RR payload in table")
	ListCmd.Flags().BoolVar(&listVerifyNS, "verify-ns", false, "Query the NS set of each zone for actually present keys")
	ListCmd.Flags().StringArrayVar(&listServers, "server", nil, "Query this nameserver instead of the NS set (repeatable, implies --verify-ns)")
	ListCmd.Flags().BoolVarP(&listPreferV4, "ipv4", "4", false, "Prefer IPv4 for communication with nameservers")
	ListCmd.Flags().BoolVarP(&listPreferV6, "ipv6", "6", false, "Prefer IPv6 for communication with nameservers (default)")
}
