package engine

import "context"

// Event sources, recorded on every domain event.
const (
	SourceEngine   = "engine"
	SourceAPI      = "api"
	SourceWS       = "ws"
	SourceAutosave = "autosave"
	SourceShutdown = "shutdown"
	SourceSim      = "sim"
)

type sourceKey struct{}

// WithSource tags ctx with the component that triggered an action.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the source stored by WithSource, or SourceEngine.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceEngine
}
