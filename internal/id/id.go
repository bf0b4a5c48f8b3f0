package id

import (
	"github.com/google/uuid"
)

// UUID generates a UUID v4 (random).
// Returns a string in the format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
func UUID() string {
	return uuid.NewString()
}

// RequestID returns the caller-supplied ID when it is a plausible token,
// otherwise a fresh UUID.
func RequestID(supplied string) string {
	if supplied != "" && len(supplied) <= 128 && isToken(supplied) {
		return supplied
	}
	return UUID()
}

func isToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}
