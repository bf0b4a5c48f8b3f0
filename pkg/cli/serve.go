package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/mockroute/pkg/config"
	"github.com/getmockd/mockroute/pkg/httputil"
	"github.com/getmockd/mockroute/pkg/metrics"
	"github.com/getmockd/mockroute/pkg/proxy"
)

const (
	// shutdownTimeout bounds graceful shutdown of each listener.
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout guards listeners against slow clients.
	readHeaderTimeout = 10 * time.Second
)

type serveFlags struct {
	configPath  string
	host        string
	port        int
	timeout     time.Duration
	metricsAddr string
	watch       bool
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy (default command)",
		Long: `Start the proxy.

The configuration file is loaded once at startup and any error aborts the
command. With --watch the file is reloaded when it changes; a reload that
fails keeps the previous rules in effect.`,
		Example: `  # Start with config.json in the current directory
  mockroute serve

  # Custom config and port, reload on change
  mockroute serve -c routes.yaml -p 9000 --watch

  # Expose Prometheus metrics and /healthz on a separate port
  mockroute serve --metrics-addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.configPath = configPath(cmd, f.configPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, f, g.logger(cmd.ErrOrStderr()), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", DefaultConfigPath, "Path to the configuration file (or set "+EnvConfig+")")
	cmd.Flags().StringVar(&f.host, "host", "0.0.0.0", "Address to listen on")
	cmd.Flags().IntVarP(&f.port, "port", "p", 8000, "Port to listen on")
	cmd.Flags().DurationVar(&f.timeout, "timeout", proxy.DefaultTimeout, "Timeout for each outbound request")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (empty = disabled)")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Reload the configuration file when it changes")

	return cmd
}

// server is a configured proxy with its optional metrics listener and
// config watcher.
type server struct {
	logger    *slog.Logger
	snapshot  *config.Snapshot
	collector *metrics.Collector
	proxy     *http.Server
	admin     *http.Server
	watcher   *config.Watcher
}

// newServer loads the configuration and wires every component. Any error
// here is fatal.
func newServer(f *serveFlags, logger *slog.Logger) (*server, error) {
	rs, err := config.LoadFromFile(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s := &server{
		logger:    logger,
		snapshot:  config.NewSnapshot(rs),
		collector: metrics.NewCollector(nil),
	}
	if err := s.collector.RegisterRuntime(); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	s.proxy = &http.Server{
		Addr: net.JoinHostPort(f.host, strconv.Itoa(f.port)),
		Handler: proxy.New(proxy.Options{
			Rules:   s.snapshot,
			Timeout: f.timeout,
			Logger:  logger,
			Metrics: s.collector,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if f.metricsAddr != "" {
		s.admin = &http.Server{
			Addr:              f.metricsAddr,
			Handler:           s.adminHandler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	if f.watch {
		s.watcher, err = config.NewWatcher(config.WatcherOptions{
			Path:     f.configPath,
			Snapshot: s.snapshot,
			Logger:   logger,
			OnReload: s.collector.ConfigReload,
		})
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status       string `json:"status"`
	RemoteServer string `json:"remote_server"`
	MockServer   string `json:"mock_server,omitempty"`
	Routes       int    `json:"routes"`
}

func (s *server) adminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.collector.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		rs := s.snapshot.RuleSet()
		httputil.WriteOK(w, healthResponse{
			Status:       "ok",
			RemoteServer: rs.RemoteServer,
			MockServer:   rs.MockServer,
			Routes:       len(rs.Routes()),
		})
	})
	return mux
}

// listen opens the listeners. The metrics listener is nil when disabled.
func (s *server) listen() (proxyLn, adminLn net.Listener, err error) {
	proxyLn, err = net.Listen("tcp", s.proxy.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", s.proxy.Addr, err)
	}
	if s.admin != nil {
		adminLn, err = net.Listen("tcp", s.admin.Addr)
		if err != nil {
			_ = proxyLn.Close()
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", s.admin.Addr, err)
		}
	}
	return proxyLn, adminLn, nil
}

// run serves until ctx is done or a listener fails, then shuts everything
// down gracefully.
func (s *server) run(ctx context.Context, proxyLn, adminLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	type listener struct {
		name string
		srv  *http.Server
		ln   net.Listener
	}
	listeners := []listener{{"proxy", s.proxy, proxyLn}}
	if s.admin != nil && adminLn != nil {
		listeners = append(listeners, listener{"metrics", s.admin, adminLn})
	}

	for _, l := range listeners {
		g.Go(func() error {
			s.logger.Info("listening", "listener", l.name, "addr", l.ln.Addr().String())
			if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s listener: %w", l.name, err)
			}
			return nil
		})
	}

	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, l := range listeners {
			if err := l.srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("%s shutdown: %w", l.name, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func runServe(ctx context.Context, f *serveFlags, logger *slog.Logger, out io.Writer) error {
	s, err := newServer(f, logger)
	if err != nil {
		return err
	}

	proxyLn, adminLn, err := s.listen()
	if err != nil {
		return err
	}

	printStartup(out, f, s.snapshot.RuleSet(), proxyLn.Addr().String())

	return s.run(ctx, proxyLn, adminLn)
}

func printStartup(w io.Writer, f *serveFlags, rs *config.RuleSet, addr string) {
	fmt.Fprintf(w, "mockroute listening on http://%s\n", addr)
	fmt.Fprintf(w, "  config:  %s (%d routes)\n", f.configPath, len(rs.Routes()))
	fmt.Fprintf(w, "  remote:  %s\n", rs.RemoteServer)
	if rs.MockServer != "" {
		fmt.Fprintf(w, "  mock:    %s\n", rs.MockServer)
	}
	if f.metricsAddr != "" {
		fmt.Fprintf(w, "  metrics: http://%s/metrics\n", f.metricsAddr)
	}
	if f.watch {
		fmt.Fprintln(w, "  watching config for changes")
	}
}
