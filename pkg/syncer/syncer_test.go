package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/drift"
	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/policy"
	"github.com/openfroyo/agentcore/pkg/remote"
	"github.com/openfroyo/agentcore/pkg/stores"
	"github.com/openfroyo/agentcore/pkg/validate"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine  *Engine
	store   *localstore.Store
	mirror  *remote.MemoryMirror
	journal *stores.SQLiteStore
	key     string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	schema, err := validate.NewSchema()
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	v := validate.New(logger)
	store, err := localstore.New(localstore.Config{
		Path:        filepath.Join(t.TempDir(), "config.yaml"),
		LockTimeout: 200 * time.Millisecond,
		RetryDelay:  10 * time.Millisecond,
	}, v, schema, logger)
	if err != nil {
		t.Fatalf("localstore.New() error = %v", err)
	}

	guard, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatalf("policy.NewEngine() error = %v", err)
	}

	journal, err := stores.Open(context.Background(), stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("stores.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	mirror := remote.NewMemoryMirror()
	e, err := New(Options{
		Store:     store,
		Mirror:    mirror,
		Validator: v,
		Schema:    schema,
		Guard:     guard,
		Journal:   journal,
		Logger:    logger,
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{
		engine:  e,
		store:   store,
		mirror:  mirror,
		journal: journal,
		key:     remote.Key(model.DefaultParameterPrefix),
	}
}

func environment(name, region string) *model.Environment {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Environment{
		Name:      name,
		Region:    region,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// seed writes a dev environment and turns cloud sync on.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	_, err := f.store.Mutate(context.Background(), func(doc *model.Document) error {
		dev := environment("dev", "us-west-2")
		dev.EnvironmentVariables = map[string]string{"LOG_LEVEL": "info"}
		doc.Environments["dev"] = dev
		doc.CurrentEnvironment = "dev"
		doc.GlobalResources.SyncConfig.CloudConfigEnabled = true
		return nil
	})
	if err != nil {
		t.Fatalf("seed Mutate() error = %v", err)
	}
}

func (f *fixture) remoteDoc(t *testing.T) *model.Document {
	t.Helper()
	data, err := f.mirror.Get(context.Background(), f.key)
	if err != nil {
		t.Fatalf("mirror Get() error = %v", err)
	}
	doc, err := model.Decode(data, model.FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return doc
}

func (f *fixture) editRemote(t *testing.T, fn func(doc *model.Document)) {
	t.Helper()
	doc := f.remoteDoc(t)
	fn(doc)
	data, err := model.Encode(doc, model.FormatJSON)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := f.mirror.Put(context.Background(), f.key, data); err != nil {
		t.Fatalf("mirror Put() error = %v", err)
	}
}

func (f *fixture) local(t *testing.T) *model.Document {
	t.Helper()
	doc, _, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return doc
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New() with no store succeeded")
	}
}

func TestFirstPush(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	run, err := f.engine.Push(ctx, PushOptions{})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	want := []State{StateIdle, StateFetchingRemote, StateDiffing, StateDriftDetected, StateApplying, StateDone}
	if !reflect.DeepEqual(run.States, want) {
		t.Errorf("States = %v, want %v", run.States, want)
	}
	if run.RemoteExists || run.RemoteKey != "/agentcore/config" || !run.Succeeded() {
		t.Errorf("run = %+v", run)
	}

	pushed := f.remoteDoc(t)
	if _, ok := pushed.Environments["dev"]; !ok {
		t.Error("remote lacks dev after push")
	}
	sc := f.local(t).GlobalResources.SyncConfig
	if sc.LastPush == nil || !sc.LastPush.Equal(testNow) || sc.LastFullSync == nil {
		t.Errorf("local sync stamps = %+v", sc)
	}

	status, err := f.engine.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.InSync || !status.RemoteExists || status.Run.State() != StateNoDrift {
		t.Errorf("Status() = %+v, report %s", status, status.Report.Summary())
	}

	runs, err := f.journal.ListSyncRuns(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListSyncRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("journal holds %d runs, want 2", len(runs))
	}
	for _, r := range runs {
		if r.Operation == string(OpPush) && (r.FinalState != string(StateDone) || r.Error != nil) {
			t.Errorf("journaled push = %+v", r)
		}
	}
}

func TestPushConflictThenPullThenForce(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	if _, err := f.engine.Push(ctx, PushOptions{}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	// Another machine adds an environment remotely.
	f.editRemote(t, func(doc *model.Document) {
		doc.Environments["analytics"] = environment("analytics", "eu-west-1")
	})

	run, err := f.engine.Push(ctx, PushOptions{})
	if !engine.IsSyncConflict(err) {
		t.Fatalf("Push() error = %v, want sync conflict", err)
	}
	if run.State() != StateFailed {
		t.Errorf("State() = %s, want FAILED", run.State())
	}
	var engErr *engine.EngineError
	if !errors.As(err, &engErr) || !reflect.DeepEqual(engErr.Details["remote_only"], []string{"environments.analytics"}) {
		t.Errorf("conflict details = %+v", engErr)
	}
	if _, ok := f.remoteDoc(t).Environments["analytics"]; !ok {
		t.Fatal("conflicting push overwrote the remote")
	}

	status, err := f.engine.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.InSync || status.Report.Count(drift.ChangeAdded) != 1 {
		t.Errorf("Status() report = %s", status.Report.Summary())
	}

	if _, err := f.engine.Pull(ctx); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	local := f.local(t)
	if _, ok := local.Environments["analytics"]; !ok {
		t.Fatal("pull did not bring in analytics")
	}
	if local.GlobalResources.SyncConfig.LastPull == nil {
		t.Error("last_pull not stamped")
	}

	// The remote gains another environment; a forced push drops it.
	f.editRemote(t, func(doc *model.Document) {
		doc.Environments["scratch"] = environment("scratch", "us-east-1")
	})
	run, err = f.engine.Push(ctx, PushOptions{Force: true})
	if err != nil {
		t.Fatalf("forced Push() error = %v", err)
	}
	if !run.Forced || run.Report.Count(drift.ChangeAdded) != 1 {
		t.Errorf("forced run = %+v", run)
	}
	if _, ok := f.remoteDoc(t).Environments["scratch"]; ok {
		t.Error("forced push kept the remote-only environment")
	}
}

func TestRemoteEntitiesNamedLikeMetadataConflict(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	if _, err := f.engine.Push(ctx, PushOptions{}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	f.editRemote(t, func(doc *model.Document) {
		doc.Environments["last_sync"] = environment("last_sync", "eu-west-1")
		doc.Environments["dev"].EnvironmentVariables["updated_at"] = "remote"
	})

	status, err := f.engine.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.InSync || status.Report.Count(drift.ChangeAdded) != 2 {
		t.Errorf("Status() report = %s, want 2 remote-only changes", status.Report.Summary())
	}

	if _, err := f.engine.Push(ctx, PushOptions{}); !engine.IsSyncConflict(err) {
		t.Fatalf("Push() error = %v, want sync conflict", err)
	}
	remoteDoc := f.remoteDoc(t)
	if _, ok := remoteDoc.Environments["last_sync"]; !ok {
		t.Error("push discarded the remote-only environment")
	}
	if remoteDoc.Environments["dev"].EnvironmentVariables["updated_at"] != "remote" {
		t.Error("push discarded the remote-only variable")
	}
}

func TestPushValueChangesOverwrite(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	if _, err := f.engine.Push(ctx, PushOptions{}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	f.editRemote(t, func(doc *model.Document) {
		doc.Environments["dev"].EnvironmentVariables["LOG_LEVEL"] = "debug"
	})

	run, err := f.engine.Push(ctx, PushOptions{})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if run.Report.Count(drift.ChangeValueChanged) != 1 {
		t.Errorf("report = %s", run.Report.Summary())
	}
	if got := f.remoteDoc(t).Environments["dev"].EnvironmentVariables["LOG_LEVEL"]; got != "info" {
		t.Errorf("remote LOG_LEVEL = %q, want info", got)
	}
}

func TestPushRequiresCloudSync(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Push(ctx, PushOptions{}); !engine.HasCode(err, engine.ErrCodeSyncDisabled) {
		t.Errorf("Push() error = %v, want SyncDisabled", err)
	}
	if _, err := f.engine.Pull(ctx); !engine.HasCode(err, engine.ErrCodeSyncDisabled) {
		t.Errorf("Pull() error = %v, want SyncDisabled", err)
	}
}

func TestPushDeniedByPolicy(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	if _, err := f.engine.SetPrefix(ctx, "/agent core"); err != nil {
		t.Fatalf("SetPrefix() error = %v", err)
	}
	_, err := f.engine.Push(ctx, PushOptions{})
	if !engine.IsPolicy(err) {
		t.Fatalf("Push() error = %v, want policy error", err)
	}
	if _, err := f.mirror.Get(ctx, remote.Key("/agent core")); !errors.Is(err, engine.ErrRemoteNotFound) {
		t.Errorf("denied push reached the remote: %v", err)
	}
	if f.local(t).GlobalResources.SyncConfig.LastPush != nil {
		t.Error("denied push stamped last_push")
	}
}

func TestPushRemoteFailureKeepsLocal(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	f.mirror.PutErr = engine.NewAdapterError("write refused", nil)

	if _, err := f.engine.Push(context.Background(), PushOptions{}); !engine.IsAdapter(err) {
		t.Fatalf("Push() error = %v, want adapter error", err)
	}
	if f.local(t).GlobalResources.SyncConfig.LastPush != nil {
		t.Error("failed push stamped last_push")
	}
}

func TestPullRejectsInvalidRemote(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "{{{"},
		{"bad region", `{"current_environment":"x","environments":{"x":{"name":"x","region":"moon-1"}},` +
			`"global_resources":{"ecr_repositories":{},"iam_roles":{},"sync_config":{"parameter_store_prefix":"/agentcore","sync_interval_minutes":60}}}`},
		{"dangling current", `{"current_environment":"prod","environments":{},` +
			`"global_resources":{"ecr_repositories":{},"iam_roles":{},"sync_config":{"parameter_store_prefix":"/agentcore","sync_interval_minutes":60}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t)
			f.seed(t)
			ctx := context.Background()
			before, err := os.ReadFile(f.store.Path())
			if err != nil {
				t.Fatal(err)
			}

			if err := f.mirror.Put(ctx, f.key, []byte(tt.payload)); err != nil {
				t.Fatal(err)
			}
			run, err := f.engine.Pull(ctx)
			if !engine.IsInvalidRemoteState(err) {
				t.Fatalf("Pull() error = %v, want invalid remote state", err)
			}
			if run.State() != StateFailed {
				t.Errorf("State() = %s", run.State())
			}

			after, err := os.ReadFile(f.store.Path())
			if err != nil {
				t.Fatal(err)
			}
			if string(before) != string(after) {
				t.Error("invalid pull modified the local document")
			}
		})
	}
}

func TestPullMissingRemote(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	if _, err := f.engine.Pull(context.Background()); !engine.IsNotFound(err) {
		t.Errorf("Pull() error = %v, want not found", err)
	}
}

func TestEnableDisableInterval(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Enable(ctx, true); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if _, err := f.engine.SetInterval(ctx, 15); err != nil {
		t.Fatalf("SetInterval() error = %v", err)
	}
	sc := f.local(t).GlobalResources.SyncConfig
	if !sc.CloudConfigEnabled || !sc.AutoSyncEnabled || sc.SyncIntervalMinutes != 15 {
		t.Errorf("sync config = %+v", sc)
	}

	if _, err := f.engine.SetInterval(ctx, 0); !engine.IsValidation(err) {
		t.Errorf("SetInterval(0) error = %v, want validation error", err)
	}

	if _, err := f.engine.Disable(ctx); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	sc = f.local(t).GlobalResources.SyncConfig
	if sc.CloudConfigEnabled || sc.AutoSyncEnabled {
		t.Errorf("sync config after Disable = %+v", sc)
	}
}

func TestShouldAutoSync(t *testing.T) {
	now := testNow
	recent := now.Add(-10 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	tests := []struct {
		name string
		cfg  model.SyncConfig
		want bool
	}{
		{"disabled", model.SyncConfig{SyncIntervalMinutes: 60}, false},
		{"cloud only", model.SyncConfig{CloudConfigEnabled: true, SyncIntervalMinutes: 60}, false},
		{"never synced", model.SyncConfig{CloudConfigEnabled: true, AutoSyncEnabled: true, SyncIntervalMinutes: 60}, true},
		{"recent", model.SyncConfig{CloudConfigEnabled: true, AutoSyncEnabled: true, SyncIntervalMinutes: 60, LastFullSync: &recent}, false},
		{"stale", model.SyncConfig{CloudConfigEnabled: true, AutoSyncEnabled: true, SyncIntervalMinutes: 60, LastFullSync: &stale}, true},
		{"short interval", model.SyncConfig{CloudConfigEnabled: true, AutoSyncEnabled: true, SyncIntervalMinutes: 5, LastFullSync: &recent}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAutoSync(tt.cfg, now); got != tt.want {
				t.Errorf("ShouldAutoSync() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutoSync(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	ctx := context.Background()

	run, err := f.engine.AutoSync(ctx)
	if err != nil || run != nil {
		t.Fatalf("AutoSync() with auto sync off = %v, %v", run, err)
	}

	if _, err := f.engine.Enable(ctx, true); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	run, err = f.engine.AutoSync(ctx)
	if err != nil {
		t.Fatalf("AutoSync() error = %v", err)
	}
	if run == nil || run.Operation != OpAuto || run.State() != StateDone {
		t.Fatalf("AutoSync() run = %+v", run)
	}

	// last_full_sync was just stamped, so nothing is due.
	run, err = f.engine.AutoSync(ctx)
	if err != nil || run != nil {
		t.Errorf("second AutoSync() = %v, %v", run, err)
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.Watch(ctx, 10*time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}
