/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"net"
	"os"
)

type AppDetails struct {
	Name    string
	Version string
	Date    string
}

type GlobalStuff struct {
	Verbose  bool
	Debug    bool
	KeyDir   string
	Zonename string
	Resolver string // explicit resolver address, overrides /etc/resolv.conf
	App      AppDetails
}

var Globals = GlobalStuff{
	Verbose: false,
	Debug:   false,
}

func (gs *GlobalStuff) Validate() error {
	if gs.KeyDir != "" {
		fi, err := os.Stat(gs.KeyDir)
		if err != nil {
			return fmt.Errorf("key directory %q not found", gs.KeyDir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("key directory %q is not a directory", gs.KeyDir)
		}
	}
	if gs.Resolver != "" {
		host := gs.Resolver
		if h, _, err := net.SplitHostPort(gs.Resolver); err == nil {
			host = h
		}
		if net.ParseIP(host) == nil {
			return fmt.Errorf("invalid resolver address: %s", gs.Resolver)
		}
	}
	return nil
}
