package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
remote_server: http://backend.local
access_token: Bearer yaml
remove_mock_prefix: true
common:
  page:
    count: 0
    results: []
url_configs:
  /api/items/[id]/:
    GET:
      response_data: "{{page}}"
      response_delay: 1
  /api/[id]/items/:
    GET:
      response_data: second
  /api/items/:
    POST:
      is_enable: false
`

func TestYAMLToJSON_PreservesOrder(t *testing.T) {
	out, err := YAMLToJSON([]byte("b: 1\na: [true, null, 1.5, text]\nc: {z: 1, y: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":[true,null,1.5,"text"],"c":{"z":1,"y":2}}`, string(out))
}

func TestYAMLToJSON_Aliases(t *testing.T) {
	out, err := YAMLToJSON([]byte("base: &b {ok: true}\ncopy: *b\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"base":{"ok":true},"copy":{"ok":true}}`, string(out))
}

func TestYAMLToJSON_MergeKeys(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "single alias",
			yaml: "base: &b {x: 1, y: 2}\nuse: {<<: *b, z: 3}\n",
			want: `{"base":{"x":1,"y":2},"use":{"x":1,"y":2,"z":3}}`,
		},
		{
			name: "explicit key wins",
			yaml: "base: &b {x: 1, y: 2}\nuse: {y: 9, <<: *b}\n",
			want: `{"base":{"x":1,"y":2},"use":{"y":9,"x":1}}`,
		},
		{
			name: "earlier source wins",
			yaml: "a: &a {x: 1}\nb: &b {x: 2, y: 2}\nuse: {<<: [*a, *b]}\n",
			want: `{"a":{"x":1},"b":{"x":2,"y":2},"use":{"x":1,"y":2}}`,
		},
		{
			name: "quoted key is literal",
			yaml: "use: {\"<<\": 1}\n",
			want: `{"use":{"\u003c\u003c":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := YAMLToJSON([]byte(tt.yaml))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestYAMLToJSON_MergeOfScalarFails(t *testing.T) {
	_, err := YAMLToJSON([]byte("s: &s 1\nuse: {<<: *s}\n"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParseYAML_MergedResponseData(t *testing.T) {
	rs, err := ParseYAML([]byte(`
remote_server: http://backend.local
mock_server: http://mock.local
defaults: &ok
  response_data: {ok: true}
  response_delay: 1
url_configs:
  /a:
    GET:
      <<: *ok
    POST:
      <<: *ok
      response_delay: 0
`))
	require.NoError(t, err)

	get, ok := rs.FindRule("/a", "GET")
	require.True(t, ok)
	assert.JSONEq(t, `{"ok": true}`, string(get.ResponseData))
	assert.Equal(t, time.Second, get.ResponseDelay)

	post, ok := rs.FindRule("/a", "POST")
	require.True(t, ok)
	assert.True(t, post.HasResponseData())
	assert.Zero(t, post.ResponseDelay)

	for _, r := range rs.Routes() {
		assert.Equal(t, RouteDirect, r.Kind, r.Method)
	}
}

func TestYAMLToJSON_Invalid(t *testing.T) {
	_, err := YAMLToJSON([]byte("a: [1, 2\n"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", sampleYAML)

	rs, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend.local", rs.RemoteServer)
	assert.Equal(t, "Bearer yaml", rs.AccessToken)
	assert.True(t, rs.RemoveMockPrefix)

	rule, ok := rs.FindRule("/api/items/9/", "GET")
	require.True(t, ok)
	assert.Equal(t, `{"count":0,"results":[]}`, string(rule.ResponseData))

	// Pattern order follows the YAML document.
	routes := rs.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/api/items/", routes[0].Path)
	assert.Equal(t, "/api/items/[id]/", routes[1].Path)
	assert.Equal(t, "/api/[id]/items/", routes[2].Path)
}
