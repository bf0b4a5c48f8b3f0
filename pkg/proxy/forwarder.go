package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/mockroute/pkg/logging"
	"github.com/getmockd/mockroute/pkg/router"
)

// DefaultTimeout bounds a single outbound call, body included.
const DefaultTimeout = 30 * time.Second

// hopByHopHeaders apply to a single connection and are never forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// UpstreamError reports an outbound call that failed before a complete
// response was received.
type UpstreamError struct {
	// Target is the base URL of the server that was called.
	Target string
	// URL is the full outbound URL.
	URL string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Response is a fully buffered response ready to be written to the client.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write copies the response to w.
func (r *Response) Write(w http.ResponseWriter) {
	dst := w.Header()
	for key, values := range r.Header {
		dst[key] = append([]string(nil), values...)
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body)
}

// NewClient returns the client used for outbound calls. Redirects are relayed
// to the caller rather than followed, and response bodies are left encoded.
func NewClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		transport = t
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Forwarder carries out dispositions.
type Forwarder struct {
	client *http.Client
	logger *slog.Logger
}

// NewForwarder creates a Forwarder. A nil client uses NewClient defaults.
func NewForwarder(client *http.Client, logger *slog.Logger) *Forwarder {
	if client == nil {
		client = NewClient(0, nil)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Forwarder{client: client, logger: logger}
}

// Execute produces the response for d. A direct-return disposition never
// leaves the process. Forwarding makes exactly one outbound call; a transport
// failure is returned as *UpstreamError. The configured delay is applied
// before returning and is cut short when ctx is done.
func (f *Forwarder) Execute(ctx context.Context, d *router.Disposition) (*Response, error) {
	if !d.IsForward() {
		if err := Wait(ctx, d.Delay); err != nil {
			return nil, err
		}
		return &Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Content-Type":   {"application/json"},
				"Content-Length": {strconv.Itoa(len(d.Payload))},
			},
			Body: d.Payload,
		}, nil
	}

	resp, err := f.forward(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := Wait(ctx, d.Delay); err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *Forwarder) forward(ctx context.Context, d *router.Disposition) (*Response, error) {
	target := d.URL()

	var body io.Reader = http.NoBody
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, target, body)
	if err != nil {
		return nil, &UpstreamError{Target: d.Target, URL: target, Err: err}
	}
	req.Header = outboundHeader(d.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Target: d.Target, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Target: d.Target, URL: target, Err: err}
	}

	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if isChunked(resp) {
		data, err = reframe(header, data)
		if err != nil {
			f.logger.Warn("could not decode chunked response, relaying encoded body",
				"url", target,
				"content_encoding", header.Get("Content-Encoding"),
				"error", err,
			)
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       data,
	}, nil
}

// outboundHeader copies h without the headers the transport owns.
func outboundHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return make(http.Header)
	}

	for _, v := range out.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		out.Del(name)
	}
	out.Del("Content-Length")
	out.Del("Host")

	return out
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
