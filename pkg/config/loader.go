package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

// maxDelaySeconds is the largest response_delay a time.Duration can hold.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

// LoadFromFile reads and resolves a RuleSet from a JSON or YAML file.
// The format is detected from the extension (.yaml, .yml for YAML, otherwise JSON).
func LoadFromFile(path string) (*RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	parse := Parse
	if ext == ".yaml" || ext == ".yml" {
		parse = ParseYAML
	}

	rs, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse resolves a RuleSet from raw JSON text.
//
// The document is parsed once to extract "common", placeholders are expanded
// textually, and the expanded text is parsed again. Both parses must succeed.
func Parse(raw []byte) (*RuleSet, error) {
	fragments, err := ExtractCommon(raw)
	if err != nil {
		return nil, err
	}

	expanded := ExpandPlaceholders(raw, fragments)
	if !gjson.ValidBytes(expanded) {
		return nil, fmt.Errorf("%w: document is malformed after placeholder expansion", ErrInvalidJSON)
	}

	doc := gjson.ParseBytes(expanded)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidJSON)
	}

	rs, err := build(doc)
	if err != nil {
		return nil, err
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return rs, nil
}

// build converts the expanded document into a RuleSet.
func build(doc gjson.Result) (*RuleSet, error) {
	rs := &RuleSet{
		RemoteServer:      baseURL(doc.Get("remote_server")),
		AccessToken:       doc.Get("access_token").String(),
		MockServer:        baseURL(doc.Get("mock_server")),
		MockServerHeaders: make(map[string]string),
		RemoveMockPrefix:  doc.Get("remove_mock_prefix").Bool(),
		Debug:             doc.Get("debug").Bool(),
		literals:          make(map[string]*PathRule),
	}

	if headers := doc.Get("mock_server_headers"); headers.Exists() && headers.Type != gjson.Null {
		if !headers.IsObject() {
			return nil, &ValidationError{Field: "mock_server_headers", Message: "must be an object of header names to values"}
		}
		headers.ForEach(func(k, v gjson.Result) bool {
			rs.MockServerHeaders[k.String()] = v.String()
			return true
		})
	}

	routes := doc.Get("url_configs")
	if !routes.Exists() || routes.Type == gjson.Null {
		return rs, nil
	}
	if !routes.IsObject() {
		return nil, &ValidationError{Field: "url_configs", Message: "must be an object keyed by path"}
	}

	// Repeated keys keep the position of their first occurrence and the value
	// of their last, the way a JSON object decoded into an ordered map would.
	patternIndex := make(map[string]int)
	var buildErr error
	routes.ForEach(func(k, v gjson.Result) bool {
		rule, err := buildPathRule(k.String(), v)
		if err != nil {
			buildErr = err
			return false
		}
		if !rule.IsPattern() {
			rs.literals[rule.Key] = rule
			return true
		}
		if i, ok := patternIndex[rule.Key]; ok {
			rs.patterns[i] = rule
			return true
		}
		patternIndex[rule.Key] = len(rs.patterns)
		rs.patterns = append(rs.patterns, rule)
		return true
	})
	if buildErr != nil {
		return nil, buildErr
	}

	return rs, nil
}

// baseURL trims whitespace and trailing slashes so endpoints can be appended.
func baseURL(v gjson.Result) string {
	return strings.TrimRight(strings.TrimSpace(v.String()), "/")
}

func buildPathRule(key string, v gjson.Result) (*PathRule, error) {
	field := "url_configs." + key
	if !v.IsObject() {
		return nil, &ValidationError{Field: field, Message: "must be an object keyed by HTTP method"}
	}

	rule := &PathRule{
		Key:     key,
		Methods: make(map[string]*MethodRule),
	}
	if IsPatternKey(key) {
		re, err := CompilePattern(key)
		if err != nil {
			return nil, &ValidationError{Field: field, Message: err.Error()}
		}
		rule.pattern = re
	}

	var buildErr error
	v.ForEach(func(m, body gjson.Result) bool {
		method := strings.ToUpper(strings.TrimSpace(m.String()))
		mr, err := buildMethodRule(key, method, body)
		if err != nil {
			buildErr = err
			return false
		}
		rule.Methods[method] = mr
		return true
	})
	if buildErr != nil {
		return nil, buildErr
	}

	return rule, nil
}

func buildMethodRule(path, method string, v gjson.Result) (*MethodRule, error) {
	field := "url_configs." + path + "." + method
	if !v.IsObject() {
		return nil, &ValidationError{Field: field, Message: "must be an object"}
	}

	mr := &MethodRule{
		Path:    path,
		Method:  method,
		Enabled: v.Get("is_enable").Type != gjson.False,
	}

	if delay := v.Get("response_delay"); delay.Exists() && delay.Type != gjson.Null {
		if delay.Type != gjson.Number || delay.Num < 0 || delay.Num != math.Trunc(delay.Num) {
			return nil, &ValidationError{Field: field + ".response_delay", Message: "must be a non-negative integer number of seconds"}
		}
		if delay.Num > float64(maxDelaySeconds) {
			return nil, &ValidationError{Field: field + ".response_delay", Message: fmt.Sprintf("must not exceed %d seconds", maxDelaySeconds)}
		}
		mr.ResponseDelay = time.Duration(delay.Int()) * time.Second
	}

	if data := v.Get("response_data"); data.Exists() {
		mr.ResponseData = compact(data.Raw)
	}
	if body := v.Get("request_body"); body.Exists() {
		mr.RequestBody = compact(body.Raw)
	}

	return mr, nil
}
