package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies the caller that started a unit of work so logs and
// background jobs can be correlated with the originating request or upload.
type TraceData struct {
	TraceID   string
	RequestID string
	Origin    string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields flattens the trace data into logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	out := make([]interface{}, 0, 6)
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.Origin != "" {
		out = append(out, "origin", td.Origin)
	}
	return out
}
