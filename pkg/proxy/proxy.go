package proxy

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/mockroute/internal/id"
	"github.com/getmockd/mockroute/pkg/httputil"
	"github.com/getmockd/mockroute/pkg/logging"
	"github.com/getmockd/mockroute/pkg/metrics"
	"github.com/getmockd/mockroute/pkg/router"
)

// statusClientClosed is recorded when the caller disconnects before a
// response could be written.
const statusClientClosed = 499

// otherMethod replaces methods outside AllowedMethods in metric labels.
const otherMethod = "OTHER"

// AllowedMethods are the methods the proxy serves. Anything else gets 405.
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodHead,
	http.MethodOptions,
}

// Options configures a Proxy.
type Options struct {
	// Rules supplies the RuleSet for each request. Required.
	Rules router.RuleSource
	// Client makes outbound calls (nil = NewClient(Timeout, nil)).
	Client *http.Client
	// Timeout bounds each outbound call when Client is nil (0 = DefaultTimeout).
	Timeout time.Duration
	// Logger for request logging (nil = no logging).
	Logger *slog.Logger
	// Metrics records request outcomes (nil = no metrics).
	Metrics *metrics.Collector
}

// Proxy routes every inbound request through the rule pipeline.
type Proxy struct {
	router    *router.Router
	forwarder *Forwarder
	logger    *slog.Logger
	metrics   *metrics.Collector
}

// New creates a Proxy with the given options.
func New(opts Options) *Proxy {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	client := opts.Client
	if client == nil {
		client = NewClient(opts.Timeout, nil)
	}

	return &Proxy{
		router:    router.New(opts.Rules),
		forwarder: NewForwarder(client, logger),
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !isAllowed(r.Method) {
		httputil.WriteMethodNotAllowed(w, r.Method, AllowedMethods)
		p.metrics.ObserveRequest("rejected", otherMethod, http.StatusMethodNotAllowed, time.Since(start))
		return
	}

	logger := p.logger.With("request_id", id.RequestID(r.Header.Get("X-Request-Id")))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("failed to read request body, continuing with empty body",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		body = nil
	}

	d := p.router.Decide(&router.Request{
		Path:        strings.TrimPrefix(r.URL.Path, "/"),
		EscapedPath: strings.TrimPrefix(r.URL.EscapedPath(), "/"),
		Method:      r.Method,
		Header:      r.Header,
		RawQuery:    r.URL.RawQuery,
		Body:        body,
	})
	p.logDecision(r, logger, d)

	resp, err := p.forwarder.Execute(r.Context(), d)
	if err != nil {
		status := p.writeError(w, r, logger, d, err)
		p.metrics.ObserveRequest(string(d.Kind), r.Method, status, time.Since(start))
		return
	}

	resp.Write(w)
	p.metrics.ObserveRequest(string(d.Kind), r.Method, resp.StatusCode, time.Since(start))

	if d.Debug {
		logger.Info("response relayed",
			"status", resp.StatusCode,
			"bytes", len(resp.Body),
			"header", resp.Header,
			"elapsed", time.Since(start),
		)
	}
}

func (p *Proxy) writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, d *router.Disposition, err error) int {
	if r.Context().Err() != nil {
		logger.Debug("client went away before the response was ready", "request", d, "error", err)
		return statusClientClosed
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		logger.Error("upstream request failed", "request", d, "error", err)
		p.metrics.UpstreamError(upErr.Target)
		httputil.WriteBadGateway(w, "proxy request failed: "+err.Error())
		return http.StatusBadGateway
	}

	logger.Error("request failed", "request", d, "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, err.Error())
	return http.StatusInternalServerError
}

// logDecision logs one line per request. Preflight requests are logged at
// debug level.
func (p *Proxy) logDecision(r *http.Request, logger *slog.Logger, d *router.Disposition) {
	level := slog.LevelInfo
	if r.Method == http.MethodOptions {
		level = slog.LevelDebug
	}

	var msg string
	switch d.Kind {
	case router.KindDirect:
		msg = "returning configured response"
	case router.KindForwardMock:
		msg = "forwarding to mock server"
	case router.KindForwardBody:
		msg = "forwarding with configured request body"
	default:
		msg = "forwarding to remote server"
	}
	logger.Log(r.Context(), level, msg, "request", d)

	if d.Debug {
		logger.Info("request detail",
			"url", d.URL(),
			"header", d.Header,
			"body_bytes", len(d.Body),
			"body_substituted", d.BodySubstituted,
		)
	}
}

func isAllowed(method string) bool {
	for _, m := range AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}
