// Package oteladapters provides OpenTelemetry implementations of the patientlist observability interfaces.
//
// Use them when the Resolver or the Postgres engine should report into an existing OpenTelemetry setup:
//
//	resolver, err := patientlist.NewResolver(
//		lists,
//		encounters,
//		patientlist.WithContextualLogger(oteladapters.NewSlogBridgeLogger("patientlists")),
//		patientlist.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("patientlists"))),
//		patientlist.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("patientlists"))),
//	)
package oteladapters
