package config

import (
	"encoding/json"
	"regexp"
	"time"
)

// RuleSet is the fully resolved proxy configuration.
type RuleSet struct {
	// RemoteServer is the base URL of the real backend.
	RemoteServer string
	// AccessToken is injected as the authorization header when a request has none.
	AccessToken string
	// MockServer is the base URL of the mock backend.
	MockServer string
	// MockServerHeaders are set on every request forwarded to the mock server.
	MockServerHeaders map[string]string
	// RemoveMockPrefix strips a leading /api segment before forwarding to the mock server.
	RemoveMockPrefix bool
	// Debug enables verbose per-request logging.
	Debug bool

	literals map[string]*PathRule
	patterns []*PathRule
}

// PathRule holds the method rules configured for one url_configs key.
type PathRule struct {
	// Key is the url_configs key as written in the document.
	Key string
	// Methods maps an upper-case HTTP method to its rule.
	Methods map[string]*MethodRule

	pattern *regexp.Regexp
}

// IsPattern reports whether the key contains an [id] wildcard.
func (p *PathRule) IsPattern() bool {
	return p.pattern != nil
}

// Match reports whether path matches the key.
func (p *PathRule) Match(path string) bool {
	if p.pattern == nil {
		return p.Key == path
	}
	return p.pattern.MatchString(path)
}

// MethodRule is the configuration for one path and method.
type MethodRule struct {
	// Path is the url_configs key the rule was declared under.
	Path string
	// Method is the upper-case HTTP method.
	Method string
	// Enabled is false only when is_enable is explicitly false.
	Enabled bool
	// ResponseDelay is the artificial delay before responding.
	ResponseDelay time.Duration
	// ResponseData is the compact JSON of response_data, nil when the field is absent.
	ResponseData json.RawMessage
	// RequestBody is the compact JSON of request_body, nil when the field is absent.
	RequestBody json.RawMessage
}

// HasResponseData reports whether response_data is present, even if null.
func (r *MethodRule) HasResponseData() bool {
	return r.ResponseData != nil
}

// Payload returns response_data when it is present and not null.
func (r *MethodRule) Payload() (json.RawMessage, bool) {
	return r.ResponseData, hasValue(r.ResponseData)
}

// SubstituteBody returns request_body when it is present and not null.
func (r *MethodRule) SubstituteBody() ([]byte, bool) {
	return r.RequestBody, hasValue(r.RequestBody)
}

func hasValue(raw json.RawMessage) bool {
	return raw != nil && string(raw) != "null"
}

// RouteKind describes how a configured rule disposes of a request.
type RouteKind string

// Route kinds reported by RuleSet.Routes.
const (
	RouteDirect   RouteKind = "direct-return"
	RouteMock     RouteKind = "forward-to-mock"
	RouteBody     RouteKind = "forward-with-body"
	RouteRemote   RouteKind = "forward-to-remote"
	RouteDisabled RouteKind = "disabled"
)

// RouteInfo summarizes one configured path and method.
type RouteInfo struct {
	Path    string        `json:"path"`
	Pattern bool          `json:"pattern"`
	Method  string        `json:"method"`
	Kind    RouteKind     `json:"kind"`
	Delay   time.Duration `json:"delay,omitempty"`
}
