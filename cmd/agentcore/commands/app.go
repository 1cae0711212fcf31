package commands

import (
	"context"
	"fmt"
	"os/user"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/agentcore/pkg/config"
	"github.com/openfroyo/agentcore/pkg/drift"
	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/manager"
	"github.com/openfroyo/agentcore/pkg/policy"
	"github.com/openfroyo/agentcore/pkg/remote"
	"github.com/openfroyo/agentcore/pkg/runtimestatus"
	"github.com/openfroyo/agentcore/pkg/stores"
	"github.com/openfroyo/agentcore/pkg/syncer"
	"github.com/openfroyo/agentcore/pkg/telemetry"
	"github.com/openfroyo/agentcore/pkg/validate"
)

// app holds everything one command invocation needs. Remote access is
// created on first use so local-only commands never touch the network.
type app struct {
	settings  *config.Settings
	logger    zerolog.Logger
	tel       *telemetry.Telemetry
	validator *validate.Validator
	schema    *validate.Schema
	store     *localstore.Store
	journal   *stores.SQLiteStore
	guard     *policy.Engine

	syncEng *syncer.Engine
}

func loadApp(ctx context.Context) (*app, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		settings.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.NewTelemetry(&settings.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logger := tel.Logger.Zerolog()

	a := &app{
		settings:  settings,
		logger:    logger,
		tel:       tel,
		validator: validate.New(logger),
	}

	if a.schema, err = validate.NewSchema(); err != nil {
		return nil, err
	}
	if a.store, err = localstore.New(settings.LocalStoreConfig(), a.validator, a.schema, logger); err != nil {
		return nil, err
	}

	if settings.Journal.Enabled {
		journal, err := stores.Open(ctx, settings.Journal.Config)
		if err != nil {
			// The journal is history only; commands still work without it.
			logger.Warn().Err(err).Str("path", settings.Journal.Path).Msg("Sync journal unavailable")
		} else {
			a.journal = journal
		}
	}

	if settings.Policy.Enabled {
		if a.guard, err = a.policyEngine(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *app) policyEngine(ctx context.Context) (*policy.Engine, error) {
	guard, err := policy.NewEngine(a.logger)
	if err != nil {
		return nil, err
	}
	if len(a.settings.Policy.Paths) > 0 {
		if err := guard.LoadPolicies(ctx, a.settings.Policy.Paths); err != nil {
			return nil, err
		}
	}
	for _, name := range a.settings.Policy.Disabled {
		if err := guard.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return guard, nil
}

func (a *app) journalOrNil() stores.Journal {
	if a.journal == nil {
		return nil
	}
	return a.journal
}

func (a *app) guardOrNil() syncer.Guard {
	if a.guard == nil {
		return nil
	}
	return a.guard
}

// syncEngine builds the sync engine and its remote mirror.
func (a *app) syncEngine(ctx context.Context) (*syncer.Engine, error) {
	if a.syncEng != nil {
		return a.syncEng, nil
	}

	mirror, err := remote.New(ctx, a.settings.Remote, a.currentRegion(ctx), a.logger)
	if err != nil {
		return nil, err
	}

	e, err := syncer.New(syncer.Options{
		Store:     a.store,
		Mirror:    telemetry.InstrumentMirror(mirror, a.tel),
		Validator: a.validator,
		Schema:    a.schema,
		Detector:  drift.NewDetector(drift.Options{ExcludePaths: a.settings.Drift.ExcludePaths}),
		Guard:     a.guardOrNil(),
		Journal:   a.journalOrNil(),
		Telemetry: a.tel,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.syncEng = e
	return e, nil
}

// AutoSync lets the manager trigger auto sync without building the mirror
// for every mutation.
func (a *app) AutoSync(ctx context.Context) (*syncer.Run, error) {
	e, err := a.syncEngine(ctx)
	if err != nil {
		return nil, err
	}
	return e.AutoSync(ctx)
}

func (a *app) newManager(ctx context.Context, withProvisioner bool) (*manager.Manager, error) {
	opts := manager.Options{
		Store:     a.store,
		Syncer:    a,
		Journal:   a.journalOrNil(),
		Telemetry: a.tel,
		Logger:    a.logger,
		Actor:     currentUser(),
	}
	if withProvisioner {
		region := a.settings.Remote.Region
		if region == "" {
			region = a.currentRegion(ctx)
		}
		awsCfg, err := remote.LoadAWSConfig(ctx, a.settings.Remote, region)
		if err != nil {
			return nil, err
		}
		opts.Provisioner = runtimestatus.NewFromConfig(awsCfg, a.logger)
	}
	return manager.New(opts)
}

// currentRegion is the region of the current environment. AWS clients default
// to it when the settings name none.
func (a *app) currentRegion(ctx context.Context) string {
	doc, _, _ := a.store.Load(ctx)
	if doc == nil {
		return ""
	}
	env, err := doc.CurrentEnv()
	if err != nil {
		return ""
	}
	return env.Region
}

func (a *app) close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close journal")
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Telemetry shutdown failed")
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// withApp loads the app, runs fn and releases it.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(a)
}
