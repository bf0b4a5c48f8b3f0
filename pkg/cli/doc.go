// Package cli implements the mockroute command line.
//
// Commands:
//
//	serve     start the proxy (also runs when no command is given)
//	validate  load a configuration file and print its route table
//	version   print build information
//
// Global flags --log-level, --log-format and --log-file configure the process
// logger; --json switches command output to JSON.
package cli
