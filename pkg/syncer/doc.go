// Package syncer keeps the local configuration document and its remote mirror
// in step.
//
// Every operation walks the same state machine and is recorded as a Run:
//
//	IDLE -> FETCHING_REMOTE -> DIFFING -> NO_DRIFT | DRIFT_DETECTED -> APPLYING -> DONE
//
// with FAILED reachable from any step. Status stops after the diff. Push
// refuses to overwrite remote-only additions unless forced, evaluates the
// policy guardrails, writes the remote and then commits the local last_push
// stamp, all while holding the document lock. Pull validates the remote
// document completely before it replaces the local one.
//
// Runs are counted in Prometheus metrics, traced with OpenTelemetry and, when
// a journal is configured, written to the SQLite sync history.
package syncer
