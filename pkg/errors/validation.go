package errors

import (
	"strings"
	"unicode"
)

// ValidateUnitName validates a fully-qualified unit name such as
// "com.example.web.Controller".
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No empty segments (leading, trailing or doubled dots)
//   - Maximum length of 1024 characters
func ValidateUnitName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "unit name cannot be empty")
	}

	if len(name) > 1024 {
		return New(ErrCodeInvalidInput, "unit name too long (max 1024 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "unit name contains invalid control characters")
		}
	}

	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return New(ErrCodeInvalidInput, "unit name has an empty segment: %q", name)
		}
	}

	return nil
}

// ValidateGroupName validates a group name produced by a grouping rule.
// An empty group name means the rule cannot place the unit anywhere.
func ValidateGroupName(unit, group string) error {
	if strings.TrimSpace(group) == "" {
		return New(ErrCodeInvalidGroupingRule, "grouping rule produced an empty group for %q", unit)
	}
	return nil
}

// ValidatePath validates a bytecode path given on the command line or in
// socomo.toml.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	return nil
}
