package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Kind is the outbound action chosen for a request.
type Kind string

// Disposition kinds.
const (
	KindDirect        Kind = "direct-return"
	KindForwardMock   Kind = "forward-to-mock"
	KindForwardBody   Kind = "forward-with-body"
	KindForwardRemote Kind = "forward-to-remote"
)

// Disposition is the resolved outbound action for one request.
type Disposition struct {
	// Kind is the action to take.
	Kind Kind
	// Rule is the url_configs key of the matched rule ("" when none applied).
	Rule string
	// Path is the request path used for rule lookup.
	Path string
	// Target is the base URL of the server to call. Empty for KindDirect.
	Target string
	// Endpoint is the path and query sent to Target.
	Endpoint string
	// Method is the HTTP method.
	Method string
	// Header is the outbound header set.
	Header http.Header
	// Body is the outbound body, original or substituted.
	Body []byte
	// BodySubstituted is true when Body came from request_body.
	BodySubstituted bool
	// Payload is the JSON returned for KindDirect.
	Payload json.RawMessage
	// Delay is the artificial delay applied before responding.
	Delay time.Duration
	// Debug mirrors the RuleSet debug flag at decision time.
	Debug bool
}

// URL returns the full outbound URL.
func (d *Disposition) URL() string {
	return d.Target + d.Endpoint
}

// IsForward reports whether the disposition makes an outbound call.
func (d *Disposition) IsForward() bool {
	return d.Kind != KindDirect
}

// LogValue implements slog.LogValuer.
func (d *Disposition) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(d.Kind)),
		slog.String("method", d.Method),
		slog.String("path", d.Path),
	}
	if d.Rule != "" {
		attrs = append(attrs, slog.String("rule", d.Rule))
	}
	if d.IsForward() {
		attrs = append(attrs, slog.String("url", d.URL()))
	}
	if d.Delay > 0 {
		attrs = append(attrs, slog.Duration("delay", d.Delay))
	}
	return slog.GroupValue(attrs...)
}
