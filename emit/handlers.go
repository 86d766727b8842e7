package emit

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LogHandler returns a Handler that writes one line per event to w. It is
// the simplest way to observe a run: register it with On(nil, ...) to see
// everything, or scope it with a Filter.
func LogHandler(w io.Writer) Handler {
	return func(e Event) {
		fmt.Fprintf(w, "[%s] %s node=%s namespace=%s run=%s payload=%v\n",
			time.UnixMilli(e.Timestamp).Format(time.RFC3339Nano), e.Type, e.NodeID, e.Namespace, e.RunID, e.Payload)
	}
}

// OTelHandler returns a Handler that turns every event into a zero-
// duration OpenTelemetry span, named after the event type, carrying the
// node/run identity and payload as span attributes. It is grounded on the
// source engine's OTelEmitter: one span per point-in-time event rather
// than a long-lived span per node, since lifecycle events here are
// already discrete (NODE_START, NODE_END, ...) rather than durations.
func OTelHandler(tracer trace.Tracer) Handler {
	return func(e Event) {
		_, span := tracer.Start(context.Background(), string(e.Type))
		defer span.End()

		span.SetAttributes(
			attribute.String("backpackflow.run_id", e.RunID),
			attribute.String("backpackflow.node_id", e.NodeID),
			attribute.String("backpackflow.namespace", e.Namespace),
		)
		for k, v := range e.Payload {
			span.SetAttributes(attribute.String("backpackflow.payload."+k, fmt.Sprintf("%v", v)))
		}
		if e.Type == ErrorEvent {
			msg := fmt.Sprintf("%v", e.Payload["errorMessage"])
			span.SetStatus(codes.Error, msg)
		}
	}
}
