package config

import (
	"fmt"
	"net/url"

	"golang.org/x/net/http/httpguts"
)

// ValidationError describes a configuration field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Validate checks the resolved RuleSet.
func (rs *RuleSet) Validate() error {
	if rs.RemoteServer == "" {
		return &ValidationError{Field: "remote_server", Message: "remote_server is required"}
	}
	if err := validateBaseURL(rs.RemoteServer, "remote_server"); err != nil {
		return err
	}

	if rs.MockServer != "" {
		if err := validateBaseURL(rs.MockServer, "mock_server"); err != nil {
			return err
		}
	}

	for name, value := range rs.MockServerHeaders {
		if !httpguts.ValidHeaderFieldName(name) {
			return &ValidationError{
				Field:   "mock_server_headers",
				Message: fmt.Sprintf("invalid header name %q", name),
			}
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return &ValidationError{
				Field:   "mock_server_headers." + name,
				Message: "header value contains invalid characters",
			}
		}
	}

	if rs.AccessToken != "" && !httpguts.ValidHeaderFieldValue(rs.AccessToken) {
		return &ValidationError{Field: "access_token", Message: "token contains characters not allowed in a header"}
	}

	return nil
}

// validateBaseURL checks that s is an absolute http or https URL.
func validateBaseURL(s, field string) error {
	u, err := url.Parse(s)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: field, Message: "URL scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: field, Message: "URL must include a host"}
	}
	return nil
}
