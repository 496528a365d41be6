package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries request correlation IDs. MessageSID is set for inbound
// Twilio deliveries so that every log line of a turn can be tied to the message.
type TraceData struct {
	TraceID    string
	RequestID  string
	MessageSID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceDataKey{}, td)
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

// LogFields returns the non-empty trace identifiers as logger key/values.
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
	if td.MessageSID != "" {
		out = append(out, "message_sid", td.MessageSID)
	}
	return out
}
