// Package observability provides OpenTelemetry tracing and metrics integration
// for workflow planning and submission.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowkit"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanCompileStage)
//	defer span.End()
//
// Metrics:
//
//	cfg := observability.DefaultMeterConfig("flowkit")
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("flowkit"))
//	metrics.RecordPlanEnd(ctx, "hydrology-demo", "ok", duration)
//
// Health Checks:
//
//	health := observability.NewServiceHealth("flowkit", "1.0.0")
//	health.AddComponent(store.CheckHealth(ctx))
package observability
