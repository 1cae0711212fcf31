package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/agentcore/pkg/drift"
	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/policy"
	"github.com/openfroyo/agentcore/pkg/remote"
	"github.com/openfroyo/agentcore/pkg/stores"
	"github.com/openfroyo/agentcore/pkg/telemetry"
	"github.com/openfroyo/agentcore/pkg/validate"
)

// DocumentStore is the local side of a sync. *localstore.Store implements it.
type DocumentStore interface {
	Load(ctx context.Context) (*model.Document, *validate.Result, error)
	Mutate(ctx context.Context, fn func(doc *model.Document) error) (*localstore.Commit, error)
	Replace(ctx context.Context, doc *model.Document) (*localstore.Commit, error)
	Path() string
}

// Guard evaluates guardrails before a push. *policy.Engine implements it.
type Guard interface {
	Evaluate(ctx context.Context, doc *model.Document, operation string) (*policy.Result, error)
}

// Options wires an Engine. Store, Mirror and Validator are required.
type Options struct {
	Store     DocumentStore
	Mirror    engine.Mirror
	Validator *validate.Validator

	// Schema checks pulled payloads before they are decoded. Optional.
	Schema *validate.Schema

	// Detector defaults to drift.NewDetector(drift.Options{}).
	Detector *drift.Detector

	// Guard is evaluated before every push. Optional.
	Guard Guard

	// Journal records every run. Optional.
	Journal stores.Journal

	// Telemetry defaults to telemetry.Nop().
	Telemetry *telemetry.Telemetry

	Logger zerolog.Logger
	Now    func() time.Time
}

// Engine runs status, push and pull against one mirror.
type Engine struct {
	store     DocumentStore
	mirror    engine.Mirror
	validator *validate.Validator
	schema    *validate.Schema
	detector  *drift.Detector
	guard     Guard
	journal   stores.Journal
	tel       *telemetry.Telemetry
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a sync engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Mirror == nil || opts.Validator == nil {
		return nil, fmt.Errorf("sync engine requires a store, a mirror and a validator")
	}
	e := &Engine{
		store:     opts.Store,
		mirror:    opts.Mirror,
		validator: opts.Validator,
		schema:    opts.Schema,
		detector:  opts.Detector,
		guard:     opts.Guard,
		journal:   opts.Journal,
		tel:       opts.Telemetry,
		logger:    opts.Logger.With().Str("component", "syncer").Str("backend", opts.Mirror.Name()).Logger(),
		now:       opts.Now,
	}
	if e.detector == nil {
		e.detector = drift.NewDetector(drift.Options{})
	}
	if e.tel == nil {
		e.tel = telemetry.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// StatusResult is the read-only comparison of the local and remote documents.
type StatusResult struct {
	Run          *Run          `json:"run"`
	InSync       bool          `json:"in_sync"`
	RemoteExists bool          `json:"remote_exists"`
	Report       *drift.Report `json:"report"`
	CloudEnabled bool          `json:"cloud_enabled"`
	AutoSync     bool          `json:"auto_sync"`
	Interval     int           `json:"sync_interval_minutes"`
	LastPush     *time.Time    `json:"last_push,omitempty"`
	LastPull     *time.Time    `json:"last_pull,omitempty"`
	LastFullSync *time.Time    `json:"last_full_sync,omitempty"`
}

// PushOptions tunes Push.
type PushOptions struct {
	// Force overwrites the remote even when it holds changes unknown locally.
	Force bool
}

// Status compares the local document with the remote one. Nothing is written.
func (e *Engine) Status(ctx context.Context) (*StatusResult, error) {
	run, ctx, span := e.begin(ctx, OpStatus)

	local, _, err := e.store.Load(ctx)
	if err != nil && !(local != nil && engine.IsValidation(err)) {
		return nil, e.finish(ctx, span, run, err)
	}
	if err != nil {
		e.logger.Warn().Err(err).Msg("Comparing an invalid local document")
	}
	key := remote.Key(local.GlobalResources.SyncConfig.ParameterStorePrefix)
	run.RemoteKey = key

	run.enter(StateFetchingRemote)
	remoteDoc, err := e.fetch(ctx, run, key)
	if err != nil {
		return nil, e.finish(ctx, span, run, err)
	}

	run.enter(StateDiffing)
	report, err := e.detector.Diff(local, remoteDoc)
	if err != nil {
		return nil, e.finish(ctx, span, run, err)
	}
	run.diffState(report)
	_ = e.finish(ctx, span, run, nil)

	sc := local.GlobalResources.SyncConfig
	return &StatusResult{
		Run:          run,
		InSync:       run.RemoteExists && report.Empty(),
		RemoteExists: run.RemoteExists,
		Report:       report,
		CloudEnabled: sc.CloudConfigEnabled,
		AutoSync:     sc.AutoSyncEnabled,
		Interval:     sc.SyncIntervalMinutes,
		LastPush:     sc.LastPush,
		LastPull:     sc.LastPull,
		LastFullSync: sc.LastFullSync,
	}, nil
}

// Push writes the local document to the remote under the document lock. It
// fails with SyncConflict when the remote holds entities unknown locally,
// unless opts.Force is set. The local last_push stamp is committed only after
// the remote write succeeded.
func (e *Engine) Push(ctx context.Context, opts PushOptions) (*Run, error) {
	return e.push(ctx, OpPush, opts)
}

func (e *Engine) push(ctx context.Context, op Operation, opts PushOptions) (*Run, error) {
	run, ctx, span := e.begin(ctx, op)
	run.Forced = opts.Force

	_, err := e.store.Mutate(ctx, func(doc *model.Document) error {
		sc := &doc.GlobalResources.SyncConfig
		if !sc.CloudConfigEnabled {
			return syncDisabled("push")
		}
		key := remote.Key(sc.ParameterStorePrefix)
		run.RemoteKey = key

		run.enter(StateFetchingRemote)
		remoteDoc, err := e.fetch(ctx, run, key)
		if err != nil {
			return err
		}

		run.enter(StateDiffing)
		report, err := e.detector.Diff(doc, remoteDoc)
		if err != nil {
			return err
		}
		run.diffState(report)

		if conflicts := report.RemoteOnly(); len(conflicts) > 0 {
			if !opts.Force {
				return conflictError(conflicts)
			}
			e.logger.Warn().Int("remote_only", len(conflicts)).Msg("Forced push discards remote-only changes")
		}

		if e.guard != nil {
			result, err := e.guard.Evaluate(ctx, doc, string(OpPush))
			if err != nil {
				return fmt.Errorf("policy evaluation failed: %w", err)
			}
			for _, w := range result.Warnings {
				e.logger.Warn().Str("policy", w.Policy).Str("path", w.Path).Msg(w.Message)
			}
			if err := result.Err(); err != nil {
				return err
			}
		}

		run.enter(StateApplying)
		now := e.now().UTC()
		sc.LastPush = &now
		sc.LastFullSync = &now

		data, err := model.Encode(doc, model.FormatJSON)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return e.mirror.Put(ctx, key, data)
	})
	if err != nil {
		return run, e.finish(ctx, span, run, err)
	}

	run.enter(StateDone)
	return run, e.finish(ctx, span, run, nil)
}

// Pull replaces the local document with the remote one. The remote payload is
// schema checked, decoded and validated first; if any step fails the local
// document is left untouched and InvalidRemoteState is returned.
func (e *Engine) Pull(ctx context.Context) (*Run, error) {
	run, ctx, span := e.begin(ctx, OpPull)

	// A broken local document is still pulled over; only its prefix and
	// enablement are read.
	local, _, err := e.store.Load(ctx)
	if err != nil {
		if engine.IsLocalStoreBusy(err) || ctx.Err() != nil {
			return run, e.finish(ctx, span, run, err)
		}
		e.logger.Warn().Err(err).Msg("Local document is unusable; pulling over it")
	}
	prefix := model.DefaultSyncConfig().ParameterStorePrefix
	if local != nil {
		if !local.GlobalResources.SyncConfig.CloudConfigEnabled {
			return run, e.finish(ctx, span, run, syncDisabled("pull"))
		}
		prefix = local.GlobalResources.SyncConfig.ParameterStorePrefix
	}
	key := remote.Key(prefix)
	run.RemoteKey = key

	run.enter(StateFetchingRemote)
	data, err := e.mirror.Get(ctx, key)
	if err != nil {
		return run, e.finish(ctx, span, run, err)
	}
	run.RemoteExists = true

	run.enter(StateDiffing)
	remoteDoc, err := e.decodeRemote(data)
	if err != nil {
		return run, e.finish(ctx, span, run, err)
	}
	report, err := e.detector.Diff(local, remoteDoc)
	if err != nil {
		return run, e.finish(ctx, span, run, err)
	}
	run.diffState(report)

	run.enter(StateApplying)
	now := e.now().UTC()
	remoteDoc.GlobalResources.SyncConfig.LastPull = &now
	if _, err := e.store.Replace(ctx, remoteDoc); err != nil {
		return run, e.finish(ctx, span, run, err)
	}

	run.enter(StateDone)
	return run, e.finish(ctx, span, run, nil)
}

// decodeRemote turns a fetched payload into a document that passed the
// schema and the validator.
func (e *Engine) decodeRemote(data []byte) (*model.Document, error) {
	if e.schema != nil {
		if violations := e.schema.CheckJSON(data); len(violations) > 0 {
			return nil, engine.NewInvalidRemoteStateError("remote document does not match the schema", violations, nil)
		}
	}
	doc, err := model.Decode(data, model.FormatJSON)
	if err != nil {
		return nil, engine.NewInvalidRemoteStateError("remote document cannot be decoded", nil, err)
	}
	if res := e.validator.Validate(doc); !res.OK() {
		return nil, engine.NewInvalidRemoteStateError("remote document failed validation", res.Violations, nil)
	}
	return doc, nil
}

// fetch returns the remote document, or nil when the key does not exist.
func (e *Engine) fetch(ctx context.Context, run *Run, key string) (*model.Document, error) {
	data, err := e.mirror.Get(ctx, key)
	if errors.Is(err, engine.ErrRemoteNotFound) {
		e.logger.Debug().Str("key", key).Msg("Remote document does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.RemoteExists = true
	return e.decodeRemote(data)
}

// Enable turns cloud sync on and sets auto sync. It does not sync.
func (e *Engine) Enable(ctx context.Context, auto bool) (*localstore.Commit, error) {
	return e.store.Mutate(ctx, func(doc *model.Document) error {
		doc.GlobalResources.SyncConfig.CloudConfigEnabled = true
		doc.GlobalResources.SyncConfig.AutoSyncEnabled = auto
		return nil
	})
}

// Disable turns cloud sync and auto sync off.
func (e *Engine) Disable(ctx context.Context) (*localstore.Commit, error) {
	return e.store.Mutate(ctx, func(doc *model.Document) error {
		doc.GlobalResources.SyncConfig.CloudConfigEnabled = false
		doc.GlobalResources.SyncConfig.AutoSyncEnabled = false
		return nil
	})
}

// SetInterval sets the auto sync interval in minutes.
func (e *Engine) SetInterval(ctx context.Context, minutes int) (*localstore.Commit, error) {
	return e.store.Mutate(ctx, func(doc *model.Document) error {
		doc.GlobalResources.SyncConfig.SyncIntervalMinutes = minutes
		return nil
	})
}

// SetPrefix sets the remote key prefix.
func (e *Engine) SetPrefix(ctx context.Context, prefix string) (*localstore.Commit, error) {
	return e.store.Mutate(ctx, func(doc *model.Document) error {
		doc.GlobalResources.SyncConfig.ParameterStorePrefix = prefix
		return nil
	})
}

func (e *Engine) begin(ctx context.Context, op Operation) (*Run, context.Context, trace.Span) {
	run := &Run{
		ID:        uuid.New().String(),
		Operation: op,
		States:    []State{StateIdle},
		Backend:   e.mirror.Name(),
		StartedAt: e.now().UTC(),
	}
	ctx, span := e.tel.Tracer.StartSyncSpan(ctx, string(op), run.ID, run.Backend)
	return run, ctx, span
}

// finish closes the run: final state, metrics, span and journal. It returns err.
func (e *Engine) finish(ctx context.Context, span trace.Span, run *Run, err error) error {
	defer span.End()

	run.CompletedAt = e.now().UTC()
	if err != nil {
		run.Err = err
		run.enter(StateFailed)
	}
	for _, s := range run.States {
		telemetry.AddStateEvent(span, string(s))
	}

	final := string(run.State())
	e.tel.Metrics.RecordSyncRun(string(run.Operation), final, run.CompletedAt.Sub(run.StartedAt))
	if run.Report != nil {
		span.SetAttributes(telemetry.AttrDriftChanges.Int(len(run.Report.Changes)))
		e.tel.Metrics.RecordDrift(string(drift.ChangeAdded), run.Report.Count(drift.ChangeAdded))
		e.tel.Metrics.RecordDrift(string(drift.ChangeRemoved), run.Report.Count(drift.ChangeRemoved))
		e.tel.Metrics.RecordDrift(string(drift.ChangeValueChanged), run.Report.Count(drift.ChangeValueChanged))
	}

	event := e.logger.Info()
	if err != nil {
		telemetry.RecordError(span, err)
		e.tel.Metrics.RecordError(err)
		event = e.logger.Warn().Err(err)
	} else {
		telemetry.RecordSuccess(span)
	}
	event.Str("run_id", run.ID).
		Str("operation", string(run.Operation)).
		Str("state", final).
		Str("key", run.RemoteKey).
		Msg("Sync run finished")

	e.record(ctx, run)
	return err
}

func (e *Engine) record(ctx context.Context, run *Run) {
	if e.journal == nil {
		return
	}
	entry := &stores.SyncRun{
		ID:          run.ID,
		Operation:   string(run.Operation),
		FinalState:  string(run.State()),
		States:      stateNames(run.States),
		Backend:     run.Backend,
		RemoteKey:   run.RemoteKey,
		Added:       run.Report.Count(drift.ChangeAdded),
		Removed:     run.Report.Count(drift.ChangeRemoved),
		Changed:     run.Report.Count(drift.ChangeValueChanged),
		Forced:      run.Forced,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
	if run.Err != nil {
		msg := run.Err.Error()
		entry.Error = &msg
	}
	// The journal is bookkeeping; the run's own outcome stands.
	if err := e.journal.RecordSyncRun(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record sync run")
	}
}

func syncDisabled(op string) error {
	return engine.NewPreconditionError(engine.ErrCodeSyncDisabled,
		"cloud sync is not enabled; run 'agentcore sync enable' first").WithOperation(op)
}

func conflictError(conflicts []drift.Change) error {
	paths := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		paths = append(paths, c.Path)
	}
	return engine.NewSyncConflictError(fmt.Sprintf(
		"remote has %d change(s) unknown locally (%s); pull first or push with --force",
		len(conflicts), strings.Join(paths, ", "))).
		WithOperation(string(OpPush)).
		WithDetail("remote_only", paths)
}
