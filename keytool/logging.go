/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package keytool

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging directs the standard logger to a rotated logfile. Only used
// when a logfile is configured; interactive runs keep logging to stderr.
func SetupLogging(logfile string) {
	log.SetFlags(log.Lshortfile | log.Ltime)

	log.SetOutput(&lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	})
}

// SetupCliLogging sets up logging for CLI use: no timestamps by default,
// file/line info when verbose or debug mode is enabled.
func SetupCliLogging() {
	if Globals.Verbose || Globals.Debug {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
