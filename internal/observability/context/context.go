// Package context carries correlation identifiers through request and ingestion contexts.
package context

import stdcontext "context"

type requestIDKey struct{}
type runIDKey struct{}

func WithRequestID(ctx stdcontext.Context, id string) stdcontext.Context {
	if id == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRunID tags the context with the ingestion run it belongs to.
func WithRunID(ctx stdcontext.Context, id string) stdcontext.Context {
	if id == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, runIDKey{}, id)
}

func RunIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}
