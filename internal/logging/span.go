package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one step of a request, such as a provider lookup, and logs its
// outcome when it ends.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	now    func() time.Time
}

// StartSpan derives a child span from ctx. The returned context carries the
// trace and span ids and a logger tagged with them.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs := []any{slog.String("span_id", spanID), slog.String("span_name", name)}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithSpanID(WithLogger(ctx, logger), spanID)
	return ctx, &Span{name: name, logger: logger, start: time.Now(), now: time.Now}
}

// Name returns the span's name.
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// End logs the span's duration together with any outcome attributes.
func (s *Span) End(args ...any) {
	if s == nil {
		return
	}
	args = append(args, slog.Duration("duration", s.now().Sub(s.start)))
	s.logger.Info("span completed", args...)
}
