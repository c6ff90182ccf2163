package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound indicates no template matched the requested
	// code, language, and version.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrDuplicateTemplate indicates a current template already exists for
	// the requested code and language.
	ErrDuplicateTemplate = errors.New("template already exists")
)

// MissingVariablesError reports the exact set of template variables the
// caller failed to provide.
type MissingVariablesError struct {
	TemplateCode string
	Missing      []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("template %q is missing variables: %s", e.TemplateCode, strings.Join(e.Missing, ", "))
}

// UnresolvedReferenceError marks template content containing a placeholder
// the renderer could not substitute, either an unknown variable or syntax
// outside the {{name}} grammar. It is a content-level failure.
type UnresolvedReferenceError struct {
	Field     string
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved template reference %s in %s", e.Reference, e.Field)
}

// MalformedMessageError marks a queue message that cannot be turned into a
// valid delivery request. Retrying cannot fix it, so it goes straight to the
// dead-letter queue.
type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return "malformed message: " + e.Reason
}
