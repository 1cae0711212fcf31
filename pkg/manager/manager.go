package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/stores"
	"github.com/openfroyo/agentcore/pkg/syncer"
	"github.com/openfroyo/agentcore/pkg/telemetry"
	"github.com/openfroyo/agentcore/pkg/validate"
	"github.com/openfroyo/agentcore/pkg/versions"
)

// Store is the local document store. *localstore.Store implements it.
type Store interface {
	Load(ctx context.Context) (*model.Document, *validate.Result, error)
	Mutate(ctx context.Context, fn func(doc *model.Document) error) (*localstore.Commit, error)
}

// AutoSyncer pushes after a committed mutation when auto sync is due.
// *syncer.Engine implements it.
type AutoSyncer interface {
	AutoSync(ctx context.Context) (*syncer.Run, error)
}

// Options wires a Manager. Only Store is required.
type Options struct {
	Store Store

	// Provisioner reports deployment outcomes for RefreshVersionStatus.
	Provisioner engine.Provisioner

	// Syncer runs auto sync after mutations.
	Syncer AutoSyncer

	// Journal receives one audit entry per committed mutation.
	Journal stores.Journal

	Telemetry *telemetry.Telemetry
	Logger    zerolog.Logger

	// Actor is recorded in audit entries.
	Actor string

	Now func() time.Time
}

// Manager is the mutation and read API over the configuration document.
type Manager struct {
	store       Store
	versions    *versions.Manager
	provisioner engine.Provisioner
	syncer      AutoSyncer
	journal     stores.Journal
	tel         *telemetry.Telemetry
	logger      zerolog.Logger
	actor       string
	now         func() time.Time
}

// MutationResult is returned by every committed mutation.
type MutationResult struct {
	Document *model.Document    `json:"document"`
	Warnings []engine.Violation `json:"warnings,omitempty"`

	// Changed is false when the mutation left the file as it was.
	Changed bool `json:"changed"`

	// Version is set by operations that create or move a version.
	Version *model.AgentRuntimeVersion `json:"version,omitempty"`
}

// New creates a manager.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("manager requires a store")
	}
	m := &Manager{
		store:       opts.Store,
		provisioner: opts.Provisioner,
		syncer:      opts.Syncer,
		journal:     opts.Journal,
		tel:         opts.Telemetry,
		logger:      opts.Logger.With().Str("component", "manager").Logger(),
		actor:       opts.Actor,
		now:         opts.Now,
	}
	if m.tel == nil {
		m.tel = telemetry.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.actor == "" {
		m.actor = "unknown"
	}
	m.versions = versions.NewManager(m.now)
	return m, nil
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

// mutate commits fn through the store, then audits and auto syncs.
func (m *Manager) mutate(ctx context.Context, op, resource string, fn func(doc *model.Document) error) (*MutationResult, error) {
	ctx, span := m.tel.Tracer.StartMutationSpan(ctx, op, resource)
	defer span.End()

	commit, err := m.store.Mutate(ctx, fn)
	m.tel.Metrics.RecordMutation(op, err)
	if err != nil {
		telemetry.RecordError(span, err)
		m.logger.Debug().Err(err).Str("operation", op).Str("resource", resource).Msg("Mutation rejected")
		return nil, err
	}
	telemetry.RecordSuccess(span)
	m.tel.Metrics.RecordWarnings(commit.Warnings)

	for _, w := range commit.Warnings {
		m.logger.Warn().Str("code", w.Code).Str("path", w.Path).Msg(w.Message)
	}
	m.logger.Info().Str("operation", op).Str("resource", resource).Bool("changed", commit.Changed).Msg("Configuration updated")

	if commit.Changed {
		m.audit(ctx, op, resource, commit)
		m.autoSync(ctx, commit.Document)
	}
	return &MutationResult{Document: commit.Document, Warnings: commit.Warnings, Changed: commit.Changed}, nil
}

func (m *Manager) audit(ctx context.Context, op, resource string, commit *localstore.Commit) {
	if m.journal == nil {
		return
	}
	entry := &stores.AuditEntry{
		Action:    op,
		Actor:     m.actor,
		Timestamp: m.timestamp(),
	}
	if resource != "" {
		entry.Resource = &resource
	}
	if len(commit.Warnings) > 0 {
		if data, err := json.Marshal(map[string]interface{}{"warnings": commit.Warnings}); err == nil {
			details := string(data)
			entry.Details = &details
		}
	}
	if err := m.journal.CreateAuditEntry(context.WithoutCancel(ctx), entry); err != nil {
		m.logger.Error().Err(err).Str("operation", op).Msg("Failed to write audit entry")
	}
}

// autoSync never fails the mutation; the commit already happened.
func (m *Manager) autoSync(ctx context.Context, doc *model.Document) {
	if m.syncer == nil {
		return
	}
	sc := doc.GlobalResources.SyncConfig
	if !sc.CloudConfigEnabled || !sc.AutoSyncEnabled {
		return
	}
	run, err := m.syncer.AutoSync(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Auto sync after mutation failed")
		return
	}
	if run != nil {
		m.logger.Info().Str("run_id", run.ID).Str("state", string(run.State())).Msg("Auto sync pushed configuration")
	}
}

// resolveEnv returns the named environment, or the current one when name is empty.
func resolveEnv(doc *model.Document, name string) (*model.Environment, error) {
	if name == "" {
		return doc.CurrentEnv()
	}
	return doc.Environment(name)
}

// runtimeIn returns a runtime of the named (or current) environment.
func runtimeIn(doc *model.Document, envName, runtimeName string) (*model.Environment, *model.AgentRuntime, error) {
	env, err := resolveEnv(doc, envName)
	if err != nil {
		return nil, nil, err
	}
	if runtimeName == "" {
		runtimeName = env.DefaultAgentRuntime
	}
	if runtimeName == "" {
		return nil, nil, engine.NewNotFoundError("environments."+env.Name+".default_agent_runtime",
			fmt.Sprintf("no agent runtime given and environment %q has no default", env.Name))
	}
	rt, err := env.Runtime(runtimeName)
	if err != nil {
		return nil, nil, err
	}
	return env, rt, nil
}

func alreadyExists(resource, format string, args ...interface{}) error {
	return engine.NewValidationError(fmt.Sprintf(format, args...), []engine.Violation{{
		Code:     engine.ErrCodeAlreadyExists,
		Path:     resource,
		Message:  fmt.Sprintf(format, args...),
		Severity: engine.SeverityError,
	}}).WithResource(resource)
}
