package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// IDMarker is the url_configs token that matches one path segment.
const IDMarker = "[id]"

// segmentPattern matches one non-empty path segment.
const segmentPattern = `[^/]+`

// IsPatternKey reports whether a url_configs key contains the [id] marker.
func IsPatternKey(key string) bool {
	return strings.Contains(key, IDMarker)
}

// CompilePattern turns a key containing [id] markers into an anchored
// regular expression. Everything except the markers is matched literally.
func CompilePattern(key string) (*regexp.Regexp, error) {
	parts := strings.Split(key, IDMarker)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := "^" + strings.Join(parts, segmentPattern) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", key, err)
	}
	return re, nil
}

// FindRule returns the rule configured for path and method.
//
// An exact key is tried first. If it is missing or has no entry for method,
// [id] keys are tried in document order and the first one that matches path
// and has an entry for method wins. The boolean is false when no rule exists,
// which callers must not confuse with a rule that has no fields set.
func (rs *RuleSet) FindRule(path, method string) (*MethodRule, bool) {
	if rs == nil {
		return nil, false
	}

	method = strings.ToUpper(method)

	if p, ok := rs.literals[path]; ok {
		if rule, ok := p.Methods[method]; ok {
			return rule, true
		}
	}

	for _, p := range rs.patterns {
		if !p.Match(path) {
			continue
		}
		if rule, ok := p.Methods[method]; ok {
			return rule, true
		}
	}

	return nil, false
}

// PathRules returns literal keys sorted by key followed by [id] keys in
// document order.
func (rs *RuleSet) PathRules() []*PathRule {
	keys := make([]string, 0, len(rs.literals))
	for k := range rs.literals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*PathRule, 0, len(keys)+len(rs.patterns))
	for _, k := range keys {
		out = append(out, rs.literals[k])
	}
	return append(out, rs.patterns...)
}

// Routes summarizes every configured path and method in lookup order.
func (rs *RuleSet) Routes() []RouteInfo {
	var routes []RouteInfo
	for _, p := range rs.PathRules() {
		methods := make([]string, 0, len(p.Methods))
		for m := range p.Methods {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, m := range methods {
			rule := p.Methods[m]
			info := RouteInfo{
				Path:    p.Key,
				Pattern: p.IsPattern(),
				Method:  m,
				Kind:    rs.kindOf(rule),
			}
			if rule.Enabled {
				info.Delay = rule.ResponseDelay
			}
			routes = append(routes, info)
		}
	}
	return routes
}

func (rs *RuleSet) kindOf(rule *MethodRule) RouteKind {
	if !rule.Enabled {
		return RouteDisabled
	}
	_, hasBody := rule.SubstituteBody()
	if !rule.HasResponseData() {
		if rs.MockServer != "" {
			return RouteMock
		}
		if hasBody {
			return RouteBody
		}
		return RouteRemote
	}
	if _, ok := rule.Payload(); ok {
		return RouteDirect
	}
	if hasBody {
		return RouteBody
	}
	return RouteRemote
}
