/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package main

import (
	"github.com/johanix/dnskeytool/cmd"
	"github.com/johanix/dnskeytool/keytool"
)

func main() {
	keytool.Globals.App.Name = appName
	keytool.Globals.App.Version = appVersion
	keytool.Globals.App.Date = appDate
	cmd.Execute()
}
