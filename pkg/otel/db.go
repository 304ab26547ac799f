package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DBSpan 为一次存储事务创建 span，system 为 sqlite 或 postgresql，mode 为 update 或 view
func DBSpan(ctx context.Context, system, mode string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "db."+mode,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", mode),
		),
	)
}

// End 记录错误状态并结束 span
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
