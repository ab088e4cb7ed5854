/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package main

// Overridden at build time via -ldflags.
var (
	appName    = "dnskeytool"
	appVersion = "v0.9.0"
	appDate    = "unknown"
)
