package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `oodb - object database index engine

Usage:
  oodb <command> [options]

Commands:
  init        Create an empty store
  stats       Show store and index statistics
  verify      Check the structure of every index
  config      Configuration management
  version     Show version information

Use "oodb <command> -h" for more information about a command.
`)
}

const storeOptions = `Options:
  -config string
        Path to configuration file
  -data-dir string
        Data directory path (overrides config, default "/var/lib/oodb")
  -page-size int
        Page size in bytes (overrides config, default 4096)
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -h, -help
        Show this help message
`

// printInitUsage prints the init command usage.
func printInitUsage(w io.Writer) {
	fmt.Fprint(w, "Create an empty store\n\nUsage:\n  oodb init [options]\n\n"+storeOptions)
}

// printStatsUsage prints the stats command usage.
func printStatsUsage(w io.Writer) {
	fmt.Fprint(w, "Show store and index statistics\n\nUsage:\n  oodb stats [options]\n\n"+storeOptions)
}

// printVerifyUsage prints the verify command usage.
func printVerifyUsage(w io.Writer) {
	fmt.Fprint(w, "Check the structure of every index\n\nUsage:\n  oodb verify [options]\n\n"+storeOptions)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  oodb config <subcommand> [options]

Subcommands:
  validate    Validate a configuration file
  init        Generate default configuration
  show        Show effective configuration
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  oodb version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
