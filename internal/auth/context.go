// ABOUTME: Authentication context for tracking the API caller through handlers
// ABOUTME: Provides WithSubject/SubjectFromContext for propagating identity via context

package auth

import (
	"context"
)

type subjectKey struct{}

// WithSubject returns a new context carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the authenticated subject, or "" when the
// request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
