package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockroute/pkg/logging"
)

const (
	// DefaultConfigPath is used when neither --config nor MOCKROUTE_CONFIG is set.
	DefaultConfigPath = "config.json"
	// EnvConfig names the environment variable holding the config path.
	EnvConfig = "MOCKROUTE_CONFIG"
)

// BuildInfo is injected by main at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	logLevel   string
	logFormat  string
	logFile    string
	jsonOutput bool
}

// logger builds the process logger. Console output goes to w.
func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(g.logLevel)
	cfg.Format = logging.ParseFormat(g.logFormat)
	cfg.Output = w
	if g.logFile != "" {
		cfg.File = logging.DefaultFileConfig(g.logFile)
	}
	return logging.New(cfg)
}

// NewRootCommand builds the mockroute command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mockroute",
		Short: "mockroute is a rule-driven HTTP proxy for mocking and rewriting API traffic",
		Long: `mockroute sits between a client and its backend. Each request is matched
against url_configs in the configuration file and is either answered with
canned data, forwarded with a replacement body, redirected to a mock server,
or passed through to the remote server unchanged.

Running mockroute without a command starts the proxy.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Also write logs to this file, rotated by size")
	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")

	root.AddCommand(
		newServeCmd(g),
		newValidateCmd(g),
		newVersionCmd(g, info),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(info BuildInfo, args []string) int {
	root := NewRootCommand(info)
	root.SetArgs(defaultToServe(root, args))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// defaultToServe routes bare invocations and flag-only invocations to serve.
func defaultToServe(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return []string{"serve"}
	}

	switch args[0] {
	case "-h", "--help", "help", "-v", "--version", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return args
	}

	if cmd, _, err := root.Find(args); err == nil && cmd != root {
		return args
	}
	return append([]string{"serve"}, args...)
}

// configPath resolves the config file: the flag if set, else the environment,
// else the flag default.
func configPath(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("config") {
		return flagValue
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return flagValue
}
