// Package observability wires OpenTelemetry tracing and metrics for process
// runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("execrun"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("execrun"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewRunMetrics(observability.Meter(observability.InstrumentationName))
//	metrics.RecordRun(ctx, "capture", observability.OutcomeSuccess, duration)
//
// Without InitTracer/InitMeter the global no-op providers are used, so
// instrumented code costs nothing when telemetry is off.
package observability
