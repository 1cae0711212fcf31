// Package telemetry provides observability instrumentation for agentcore.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind a single Telemetry value.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	tel, err := telemetry.NewTelemetry(settings.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Packages that take a zerolog.Logger receive tel.Logger.Zerolog().
//
// # Tracing
//
// Sync runs open a span per run (sync.push, sync.pull, sync.status) with one
// event per state transition. Mutations open mutation.<operation> spans.
// Remote calls are traced as remote.get and remote.put by wrapping the mirror
// with InstrumentMirror.
// Exporters: otlp (gRPC), stdout, none.
//
// # Metrics
//
// Metrics are collected on a private registry:
//
//	agentcore_sync_runs_total{operation,state}
//	agentcore_sync_run_duration_seconds{operation}
//	agentcore_drift_changes_total{kind}
//	agentcore_mutations_total{operation,status}
//	agentcore_validation_warnings_total{code}
//	agentcore_remote_calls_total{backend,operation}
//	agentcore_remote_call_duration_seconds{backend,operation}
//	agentcore_remote_errors_total{backend,code}
//	agentcore_errors_total{kind,code}
//
// They are served over HTTP only when metrics are enabled, which is useful for
// the long-running "sync watch" command.
package telemetry
