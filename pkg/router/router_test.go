package router

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockroute/pkg/config"
)

const rulesDoc = `{
	"remote_server": "http://remote.local",
	"access_token": "Bearer configured",
	"mock_server": "http://mock.local",
	"mock_server_headers": {"X-Mock-Workspace": "qa", "X-Trace": "mock"},
	"remove_mock_prefix": true,
	"url_configs": {
		"/api/ok/": {"GET": {"response_data": {"ok": true}, "response_delay": 2}},
		"/api/users/[id]/": {"GET": {}, "PUT": {"request_body": {"x": 1}}},
		"/api/reports/": {
			"POST": {"response_data": null, "request_body": {"x": 1}},
			"DELETE": {"response_data": null, "response_delay": 1},
			"PATCH": {"is_enable": false, "response_data": {"never": true}, "response_delay": 9}
		}
	}
}`

func newRouter(t *testing.T, doc string) *Router {
	t.Helper()
	rs, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return New(config.NewSnapshot(rs))
}

func TestDecide_UnconfiguredForwardsToRemote(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{
		Path:     "api/other/",
		Method:   http.MethodGet,
		Header:   http.Header{"Accept": {"application/json"}},
		RawQuery: "page=1&pagesize=30",
		Body:     []byte("original"),
	})

	assert.Equal(t, KindForwardRemote, d.Kind)
	assert.Equal(t, "http://remote.local", d.Target)
	assert.Equal(t, "/api/other/?page=1&pagesize=30", d.Endpoint)
	assert.Equal(t, "http://remote.local/api/other/?page=1&pagesize=30", d.URL())
	assert.Equal(t, "/api/other/", d.Path)
	assert.Equal(t, []byte("original"), d.Body)
	assert.Empty(t, d.Rule)
	assert.Zero(t, d.Delay)
}

func TestDecide_DirectReturn(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/ok/", Method: http.MethodGet, RawQuery: "ignored=1"})

	assert.Equal(t, KindDirect, d.Kind)
	assert.False(t, d.IsForward())
	assert.JSONEq(t, `{"ok": true}`, string(d.Payload))
	assert.Equal(t, 2*time.Second, d.Delay)
	assert.Equal(t, "/api/ok/", d.Rule)
	assert.Empty(t, d.Target)
}

func TestDecide_QueryIgnoredForLookup(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/ok/", Method: http.MethodGet, RawQuery: "a=b"})
	assert.Equal(t, KindDirect, d.Kind)
}

func TestDecide_ForwardToMock(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{
		Path:     "api/users/42/",
		Method:   http.MethodGet,
		Header:   http.Header{"X-Trace": {"client"}, "Accept": {"*/*"}},
		RawQuery: "expand=true",
		Body:     []byte("keep"),
	})

	assert.Equal(t, KindForwardMock, d.Kind)
	assert.Equal(t, "http://mock.local", d.Target)
	assert.Equal(t, "/users/42/?expand=true", d.Endpoint, "the /api prefix is removed")
	assert.Equal(t, "/api/users/[id]/", d.Rule)
	assert.Equal(t, "qa", d.Header.Get("X-Mock-Workspace"))
	assert.Equal(t, "mock", d.Header.Get("X-Trace"), "mock headers override inbound ones")
	assert.Equal(t, "*/*", d.Header.Get("Accept"))
	assert.Equal(t, []byte("keep"), d.Body)
}

func TestDecide_ForwardToMockSubstitutesBody(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/users/7/", Method: http.MethodPut, Body: []byte(`{"x":2}`)})

	assert.Equal(t, KindForwardMock, d.Kind)
	assert.Equal(t, `{"x":1}`, string(d.Body))
	assert.True(t, d.BodySubstituted)
}

func TestDecide_ForwardWithSubstitutedBody(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/reports/", Method: http.MethodPost, Body: []byte(`{"y":2}`)})

	assert.Equal(t, KindForwardBody, d.Kind)
	assert.Equal(t, "http://remote.local", d.Target)
	assert.Equal(t, "/api/reports/", d.Endpoint, "prefix is only removed for the mock server")
	assert.Equal(t, `{"x":1}`, string(d.Body))
	assert.True(t, d.BodySubstituted)
}

func TestDecide_NullResponseDataKeepsDelay(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/reports/", Method: http.MethodDelete})

	assert.Equal(t, KindForwardRemote, d.Kind)
	assert.Equal(t, time.Second, d.Delay)
	assert.Equal(t, "/api/reports/", d.Rule)
}

func TestDecide_DisabledRuleMatchesUnconfigured(t *testing.T) {
	disabled := newRouter(t, rulesDoc)
	unconfigured := newRouter(t, `{
		"remote_server": "http://remote.local",
		"access_token": "Bearer configured",
		"mock_server": "http://mock.local",
		"mock_server_headers": {"X-Mock-Workspace": "qa", "X-Trace": "mock"},
		"remove_mock_prefix": true
	}`)

	req := func() *Request {
		return &Request{
			Path:     "api/reports/",
			Method:   http.MethodPatch,
			Header:   http.Header{"Content-Type": {"application/json"}},
			RawQuery: "q=1",
			Body:     []byte(`{"patch":true}`),
		}
	}

	got := disabled.Decide(req())
	want := unconfigured.Decide(req())

	assert.Equal(t, want, got)
	assert.Zero(t, got.Delay, "a disabled rule's delay is discarded")
}

func TestDecide_InjectsAccessToken(t *testing.T) {
	r := newRouter(t, rulesDoc)

	for _, path := range []string{"api/other/", "api/ok/", "api/users/1/", "api/reports/"} {
		d := r.Decide(&Request{Path: path, Method: http.MethodPost})
		assert.Equal(t, "Bearer configured", d.Header.Get("Authorization"), path)
	}
}

func TestDecide_KeepsInboundAuthorization(t *testing.T) {
	r := newRouter(t, rulesDoc)

	in := http.Header{"Authorization": {"Bearer caller"}}
	d := r.Decide(&Request{Path: "api/other/", Method: http.MethodGet, Header: in})

	assert.Equal(t, "Bearer caller", d.Header.Get("Authorization"))

	// An empty header is still a header.
	d = r.Decide(&Request{Path: "api/other/", Method: http.MethodGet, Header: http.Header{"Authorization": {""}}})
	assert.Equal(t, []string{""}, d.Header.Values("Authorization"))
}

func TestDecide_NoAccessTokenConfigured(t *testing.T) {
	r := newRouter(t, `{"remote_server": "http://remote.local"}`)

	d := r.Decide(&Request{Path: "x", Method: http.MethodGet})
	assert.Empty(t, d.Header.Values("Authorization"))
}

func TestDecide_DoesNotModifyInboundHeader(t *testing.T) {
	r := newRouter(t, rulesDoc)

	in := http.Header{"X-Trace": {"client"}}
	_ = r.Decide(&Request{Path: "api/users/1/", Method: http.MethodGet, Header: in})

	assert.Equal(t, http.Header{"X-Trace": {"client"}}, in)
}

func TestDecide_NoMockServerFallsBackToRemote(t *testing.T) {
	r := newRouter(t, `{
		"remote_server": "http://remote.local",
		"remove_mock_prefix": true,
		"url_configs": {
			"/api/a": {"GET": {}, "POST": {"request_body": {"x": 1}}}
		}
	}`)

	d := r.Decide(&Request{Path: "api/a", Method: http.MethodGet})
	assert.Equal(t, KindForwardRemote, d.Kind)
	assert.Equal(t, "http://remote.local/api/a", d.URL())

	d = r.Decide(&Request{Path: "api/a", Method: http.MethodPost, Body: []byte("in")})
	assert.Equal(t, KindForwardBody, d.Kind)
	assert.Equal(t, `{"x":1}`, string(d.Body))
	assert.Equal(t, "http://remote.local/api/a", d.URL())
}

func TestDecide_UsesEscapedPathForForwarding(t *testing.T) {
	r := newRouter(t, rulesDoc)

	d := r.Decide(&Request{Path: "api/files/a b", EscapedPath: "api/files/a%20b", Method: http.MethodGet})
	assert.Equal(t, "/api/files/a b", d.Path)
	assert.Equal(t, "/api/files/a%20b", d.Endpoint)
}

func TestDecide_ReadsCurrentSnapshot(t *testing.T) {
	first, err := config.Parse([]byte(`{"remote_server": "http://one"}`))
	require.NoError(t, err)
	second, err := config.Parse([]byte(`{"remote_server": "http://two"}`))
	require.NoError(t, err)

	snap := config.NewSnapshot(first)
	r := New(snap)

	assert.Equal(t, "http://one", r.Decide(&Request{Path: "a", Method: "GET"}).Target)
	snap.Store(second)
	assert.Equal(t, "http://two", r.Decide(&Request{Path: "a", Method: "GET"}).Target)
}

func TestStripAPIPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/users/", "/users/"},
		{"/api", "/"},
		{"/api/", "/"},
		{"/apiary/x", "/apiary/x"},
		{"/v1/api/x", "/v1/api/x"},
		{"/", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripAPIPrefix(tt.in), tt.in)
	}
}

func BenchmarkDecide(b *testing.B) {
	rs, err := config.Parse([]byte(rulesDoc))
	require.NoError(b, err)
	r := New(config.NewSnapshot(rs))

	req := &Request{
		Path:   "api/users/42/",
		Method: http.MethodGet,
		Header: http.Header{"Accept": {"application/json"}},
	}
	for b.Loop() {
		r.Decide(req)
	}
}
