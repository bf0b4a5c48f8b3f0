// mockroute CLI - rule-driven HTTP proxy for mocking and rewriting API traffic
package main

import (
	"os"

	"github.com/getmockd/mockroute/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}, os.Args[1:]))
}
