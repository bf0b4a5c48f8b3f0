// Package config loads the routing rules used by the proxy.
//
// A rule file is a single JSON (or YAML) document:
//
//	{
//	  "remote_server": "http://backend.local:8080",
//	  "access_token": "Bearer abc",
//	  "mock_server": "http://localhost:4280",
//	  "mock_server_headers": {"X-Mock": "1"},
//	  "remove_mock_prefix": true,
//	  "debug": false,
//	  "common": {"page": {"count": 0, "results": []}},
//	  "url_configs": {
//	    "/api/reports/": {
//	      "GET": {"response_data": "{{page}}", "response_delay": 1}
//	    },
//	    "/api/user/[id]/": {
//	      "PUT": {"request_body": {"name": "fixed"}}
//	    }
//	  }
//	}
//
// Resolution happens in two phases. The raw document is parsed once to pull
// out the "common" fragments, every literal "{{name}}" token (quotes
// included) is replaced with the JSON form of the matching fragment, and the
// expanded text is parsed again to build the RuleSet. Placeholders inside
// fragments are not expanded.
//
// Keys of url_configs that contain [id] match any single path segment in
// that position. Literal keys are always tried before [id] keys, and [id]
// keys are tried in the order they appear in the document.
//
// A RuleSet is never modified after it is built. Snapshot and Watcher hand out
// whole RuleSets, so readers never need a lock.
package config
