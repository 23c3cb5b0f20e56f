package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxGraphIDLength bounds graph identifiers accepted from the outside.
const maxGraphIDLength = 128

// graphIDRegex matches identifiers safe for URL paths and cache keys.
var graphIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// ValidateGraphID validates a graph session identifier.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateGraphID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "graph id cannot be empty")
	}

	if len(id) > maxGraphIDLength {
		return New(ErrCodeInvalidInput, "graph id too long (max %d characters)", maxGraphIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "graph id contains invalid control characters")
		}
	}

	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "graph id cannot contain path traversal sequences (..)")
	}

	if !graphIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid graph id: %q", id)
	}

	return nil
}

// ValidatePath validates a local file path supplied on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}
