/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/johanix/dnskeytool/keytool"
	"github.com/miekg/dns"
)

// Conf is the parsed configuration, set by the root command before any
// subcommand runs. May stay nil when no config file is present; all
// accessors on it handle that.
var Conf *keytool.Config

// PrepZone validates and fully qualifies a zone argument.
func PrepZone(arg string) string {
	if arg == "" {
		fmt.Printf("Error: zone name not specified\n")
		os.Exit(1)
	}
	if strings.Contains(arg, "/") || strings.Contains(arg, "..") {
		fmt.Printf("Error: %q is not a valid zone name\n", arg)
		os.Exit(1)
	}
	if !strings.HasSuffix(arg, ".") {
		arg = dns.Fqdn(arg)
		fmt.Fprintf(os.Stderr, "Zone is missing root label, assuming fully qualified: %s\n", arg)
	}
	if _, ok := dns.IsDomainName(arg); !ok {
		fmt.Printf("Error: %q is not a valid zone name\n", arg)
		os.Exit(1)
	}
	return arg
}

// PrepKeyStore opens the key directory given by --dir (or the config file,
// or the current directory).
func PrepKeyStore() *keytool.KeyStore {
	dir := keytool.Globals.KeyDir
	if dir == "" && Conf != nil {
		dir = Conf.Keystore.Dir
	}
	store, err := keytool.NewKeyStore(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return store
}

// PrepKeyType parses a --type argument; required says whether empty is an
// error or means "any".
func PrepKeyType(arg string, required bool) keytool.KeyType {
	if arg == "" {
		if required {
			fmt.Printf("Error: key type not specified using --type flag\n")
			os.Exit(1)
		}
		return keytool.TypeAny
	}
	kt, exist := keytool.StringToKeyType[strings.ToUpper(arg)]
	if !exist {
		fmt.Printf("Error: key type %q is not known (ZSK|KSK)\n", arg)
		os.Exit(1)
	}
	return kt
}
