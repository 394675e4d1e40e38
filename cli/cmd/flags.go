// Package cmd provides the commands behind the ingot binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects the output format: json, table, or yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables the interactive browser. Declared on every
	// read-only command so unsupported ones can reject it with a clear
	// message instead of a flag parse error.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Browse interactively (inspect only)",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}
