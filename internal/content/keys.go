package content

import (
	"strings"

	"github.com/sakif/snippet-vault/internal/apperror"
)

// CheckKey validates a category or slug before it is used to address
// storage. Keys become path segments in the file backend, so parent
// references, separators of either OS and NUL bytes are rejected.
func CheckKey(field, value string) error {
	switch {
	case value == "":
		return apperror.ValidationFailed(field, field+" is required")
	case strings.Contains(value, ".."):
		return apperror.ValidationFailed(field, field+" must not contain \"..\"")
	case strings.ContainsAny(value, "/\\\x00"):
		return apperror.ValidationFailed(field, field+" must not contain path separators")
	}
	return nil
}

// NormalizeCategory lower-cases and trims a submitted category name.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
