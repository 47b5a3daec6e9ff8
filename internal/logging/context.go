package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Context keys for rune's correlation fields. A workspace is an indexed
// root; a repository is its label on documents and results; a request
// id ties one tool call's log entries together across the search path.
type (
	workspaceCtxKey  struct{}
	repositoryCtxKey struct{}
	requestCtxKey    struct{}
)

// WithWorkspace tags ctx with the workspace root being operated on.
func WithWorkspace(ctx context.Context, root string) context.Context {
	return context.WithValue(ctx, workspaceCtxKey{}, root)
}

// WithRepository tags ctx with the repository label being operated on.
func WithRepository(ctx context.Context, repository string) context.Context {
	return context.WithValue(ctx, repositoryCtxKey{}, repository)
}

// WithRequestID tags ctx with a tool-call request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// ContextFields extracts every correlation field present on ctx, in a
// fixed order so log lines diff cleanly.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if ws, ok := ctx.Value(workspaceCtxKey{}).(string); ok && ws != "" {
		fields = append(fields, zap.String("workspace", ws))
	}
	if repo, ok := ctx.Value(repositoryCtxKey{}).(string); ok && repo != "" {
		fields = append(fields, zap.String("repository", repo))
	}
	if req, ok := ctx.Value(requestCtxKey{}).(string); ok && req != "" {
		fields = append(fields, zap.String("request_id", req))
	}
	return fields
}
