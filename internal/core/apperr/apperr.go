// SPDX-License-Identifier: Apache-2.0

// Package apperr defines the error kinds that cross component boundaries.
// Everything else in the tree wraps with fmt.Errorf("%w") and lets callers
// classify via errors.As.
package apperr

import "fmt"

// NotFoundError reports an unknown procedure or feature id.
type NotFoundError struct {
	Kind string // "procedure" or "feature"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// MergeError reports an overlay shape the merger refuses to handle.
// Path names the offending location in the document.
type MergeError struct {
	Path   string
	Reason string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("unsupported overlay merge at %s: %s", e.Path, e.Reason)
}

// UnauthorizedError is a gate denial due to a missing or wrong credential.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason
}

// ForbiddenError is a gate denial due to an allow-list mismatch.
type ForbiddenError struct {
	Path string
}

func (e *ForbiddenError) Error() string {
	return "playbook not allowed: " + e.Path
}

// ValidationError carries schema violations for a request's arguments.
// Recoverable: planning surfaces these in the Decision instead of failing.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "validation failed: " + e.Issues[0]
	}
	return fmt.Sprintf("validation failed (%d issues)", len(e.Issues))
}
