package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockroute/pkg/cli/internal/output"
	"github.com/getmockd/mockroute/pkg/config"
)

// ValidateOutput is the --json result of validate.
type ValidateOutput struct {
	Config           string        `json:"config"`
	RemoteServer     string        `json:"remote_server"`
	MockServer       string        `json:"mock_server,omitempty"`
	RemoveMockPrefix bool          `json:"remove_mock_prefix"`
	Debug            bool          `json:"debug"`
	Routes           []RouteOutput `json:"routes"`
}

// RouteOutput describes one configured path and method.
type RouteOutput struct {
	Path         string `json:"path"`
	Pattern      bool   `json:"pattern"`
	Method       string `json:"method"`
	Disposition  string `json:"disposition"`
	DelaySeconds int    `json:"delay_seconds,omitempty"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and print its route table",
		Long: `Load a configuration file exactly as serve would, without starting the proxy.

Placeholders from "common" are expanded and every url_configs entry is listed
with the disposition it resolves to. Any load or validation error exits
non-zero.`,
		Example: `  mockroute validate
  mockroute validate -c routes.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path = configPath(cmd, path)

			rs, err := config.LoadFromFile(path)
			if err != nil {
				return err
			}

			warnUnusedMockSettings(cmd.ErrOrStderr(), rs)

			result := newValidateOutput(path, rs)
			if g.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), result)
			}
			return printRouteTable(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", DefaultConfigPath, "Path to the configuration file (or set "+EnvConfig+")")

	return cmd
}

func newValidateOutput(path string, rs *config.RuleSet) ValidateOutput {
	out := ValidateOutput{
		Config:           path,
		RemoteServer:     rs.RemoteServer,
		MockServer:       rs.MockServer,
		RemoveMockPrefix: rs.RemoveMockPrefix,
		Debug:            rs.Debug,
		Routes:           []RouteOutput{},
	}
	for _, r := range rs.Routes() {
		out.Routes = append(out.Routes, RouteOutput{
			Path:         r.Path,
			Pattern:      r.Pattern,
			Method:       r.Method,
			Disposition:  string(r.Kind),
			DelaySeconds: int(r.Delay.Seconds()),
		})
	}
	return out
}

// warnUnusedMockSettings flags mock options that do nothing because no
// mock_server is configured.
func warnUnusedMockSettings(w io.Writer, rs *config.RuleSet) {
	if rs.MockServer != "" {
		return
	}
	if rs.RemoveMockPrefix {
		output.Warn(w, "remove_mock_prefix has no effect without mock_server")
	}
	if len(rs.MockServerHeaders) > 0 {
		output.Warn(w, "mock_server_headers has no effect without mock_server")
	}
}

func printRouteTable(w io.Writer, v ValidateOutput) error {
	fmt.Fprintf(w, "%s is valid\n", v.Config)
	fmt.Fprintf(w, "  remote: %s\n", v.RemoteServer)
	if v.MockServer != "" {
		fmt.Fprintf(w, "  mock:   %s\n", v.MockServer)
	}

	if len(v.Routes) == 0 {
		fmt.Fprintln(w, "\nNo routes configured; every request is forwarded to the remote server.")
		return nil
	}

	fmt.Fprintln(w)
	tw := output.Table(w)
	fmt.Fprintln(tw, "PATH\tMATCH\tMETHOD\tDISPOSITION\tDELAY")
	for _, r := range v.Routes {
		match := "exact"
		if r.Pattern {
			match = "pattern"
		}
		delay := "-"
		if r.DelaySeconds > 0 {
			delay = fmt.Sprintf("%ds", r.DelaySeconds)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Path, match, r.Method, r.Disposition, delay)
	}
	return tw.Flush()
}
