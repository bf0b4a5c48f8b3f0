package router

import (
	"net/http"
	"strings"

	"github.com/getmockd/mockroute/pkg/config"
)

// apiPrefix is the path segment removed before forwarding to the mock server
// when remove_mock_prefix is set.
const apiPrefix = "/api"

// RuleSource supplies the RuleSet in effect. *config.Snapshot implements it.
type RuleSource interface {
	RuleSet() *config.RuleSet
}

// Request is the part of an inbound request the Router needs.
type Request struct {
	// Path is the request path without its leading slash.
	Path string
	// EscapedPath is the encoded form of Path, used when forwarding. Path is
	// used when it is empty.
	EscapedPath string
	// Method is the HTTP method.
	Method string
	// Header is the inbound header set. It is cloned, never modified.
	Header http.Header
	// RawQuery is the query string without the leading '?'.
	RawQuery string
	// Body is the inbound body.
	Body []byte
}

// Router turns requests into dispositions.
type Router struct {
	rules RuleSource
}

// New creates a Router reading rules from src.
func New(src RuleSource) *Router {
	return &Router{rules: src}
}

// Decide resolves the disposition for req.
func (r *Router) Decide(req *Request) *Disposition {
	rs := r.rules.RuleSet()

	path := "/" + req.Path
	forwardPath := path
	if req.EscapedPath != "" {
		forwardPath = "/" + req.EscapedPath
	}

	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if len(header.Values("Authorization")) == 0 && rs.AccessToken != "" {
		header.Set("Authorization", rs.AccessToken)
	}

	d := &Disposition{
		Kind:   KindForwardRemote,
		Path:   path,
		Target: rs.RemoteServer,
		Method: req.Method,
		Header: header,
		Body:   req.Body,
		Debug:  rs.Debug,
	}

	rule, ok := rs.FindRule(path, req.Method)
	if !ok || !rule.Enabled {
		d.Endpoint = withQuery(forwardPath, req.RawQuery)
		return d
	}

	d.Rule = rule.Path
	d.Delay = rule.ResponseDelay
	body, hasBody := rule.SubstituteBody()

	switch payload, hasPayload := rule.Payload(); {
	case !rule.HasResponseData():
		if hasBody {
			d.Body = body
			d.BodySubstituted = true
			d.Kind = KindForwardBody
		}
		if rs.MockServer != "" {
			d.Kind = KindForwardMock
			d.Target = rs.MockServer
			if rs.RemoveMockPrefix {
				forwardPath = stripAPIPrefix(forwardPath)
			}
			for name, value := range rs.MockServerHeaders {
				header.Set(name, value)
			}
		}

	case hasPayload:
		d.Kind = KindDirect
		d.Target = ""
		d.Payload = payload
		d.Endpoint = path
		return d

	case hasBody:
		d.Kind = KindForwardBody
		d.Body = body
		d.BodySubstituted = true
	}

	d.Endpoint = withQuery(forwardPath, req.RawQuery)
	return d
}

// stripAPIPrefix removes a leading /api path segment.
func stripAPIPrefix(p string) string {
	switch {
	case p == apiPrefix:
		return "/"
	case strings.HasPrefix(p, apiPrefix+"/"):
		return p[len(apiPrefix):]
	default:
		return p
	}
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
