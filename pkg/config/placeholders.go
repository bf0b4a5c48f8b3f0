package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Fragment is one named entry of the "common" section.
type Fragment struct {
	Name  string
	Value json.RawMessage
}

// Token returns the placeholder text replaced by this fragment, quotes included.
func (f Fragment) Token() string {
	return `"{{` + f.Name + `}}"`
}

// ExtractCommon parses the raw document and returns its "common" entries in
// document order. The raw document must itself be valid JSON.
func ExtractCommon(raw []byte) ([]Fragment, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: document is malformed", ErrInvalidJSON)
	}

	common := gjson.GetBytes(raw, "common")
	if !common.Exists() || common.Type == gjson.Null {
		return nil, nil
	}
	if !common.IsObject() {
		return nil, &ValidationError{Field: "common", Message: "must be an object of named fragments"}
	}

	var fragments []Fragment
	common.ForEach(func(k, v gjson.Result) bool {
		fragments = append(fragments, Fragment{Name: k.String(), Value: compact(v.Raw)})
		return true
	})
	return fragments, nil
}

// ExpandPlaceholders replaces every "{{name}}" token in raw with the JSON value
// of the fragment called name. Fragments are applied once each, in order, so a
// fragment whose value contains another token is not expanded recursively.
func ExpandPlaceholders(raw []byte, fragments []Fragment) []byte {
	out := raw
	for _, f := range fragments {
		token := []byte(f.Token())
		if !bytes.Contains(out, token) {
			continue
		}
		out = bytes.ReplaceAll(out, token, f.Value)
	}
	return out
}

// compact strips insignificant whitespace from a JSON value. gjson has
// already validated raw, so a Compact failure only returns raw unchanged.
func compact(raw string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return json.RawMessage(raw)
	}
	return json.RawMessage(buf.Bytes())
}
