package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id, operation string, started time.Time) *SyncRun {
	msg := "remote has 1 change unknown locally"
	return &SyncRun{
		ID:          id,
		Operation:   operation,
		FinalState:  "FAILED",
		States:      []string{"IDLE", "FETCHING_REMOTE", "DIFFING", "DRIFT_DETECTED", "FAILED"},
		Backend:     "memory",
		RemoteKey:   "/agentcore/config",
		Added:       1,
		Error:       &msg,
		StartedAt:   started,
		CompletedAt: started.Add(150 * time.Millisecond),
	}
}

func TestStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()

	store, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Re-opening runs the migrations again without error.
	store, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("re-Open() error = %v", err)
	}
	_ = store.Close()
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("NewSQLiteStore() without path succeeded")
	}
}

func TestSyncRunRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", "push", started)
	if err := store.RecordSyncRun(ctx, run); err != nil {
		t.Fatalf("RecordSyncRun() error = %v", err)
	}

	got, err := store.GetSyncRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetSyncRun() error = %v", err)
	}
	if got.Operation != "push" || got.FinalState != "FAILED" || got.Added != 1 {
		t.Errorf("GetSyncRun() = %+v", got)
	}
	if len(got.States) != 5 || got.States[3] != "DRIFT_DETECTED" {
		t.Errorf("States = %v", got.States)
	}
	if got.Error == nil || *got.Error != *run.Error {
		t.Errorf("Error = %v", got.Error)
	}
	if !got.StartedAt.Equal(started) || got.Duration() != 150*time.Millisecond {
		t.Errorf("StartedAt = %v, Duration() = %v", got.StartedAt, got.Duration())
	}

	if _, err := store.GetSyncRun(ctx, "missing"); !engine.IsNotFound(err) {
		t.Errorf("GetSyncRun(missing) error = %v, want not found", err)
	}
}

func TestListAndPruneSyncRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ops := []string{"push", "pull", "push", "status"}
	for i, op := range ops {
		run := sampleRun(string(rune('a'+i)), op, base.Add(time.Duration(i)*time.Minute))
		if err := store.RecordSyncRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListSyncRuns(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListSyncRuns() error = %v", err)
	}
	if len(all) != 4 || all[0].ID != "d" {
		t.Errorf("ListSyncRuns() = %d runs, first %s; want 4, newest first", len(all), all[0].ID)
	}

	push := "push"
	pushes, err := store.ListSyncRuns(ctx, &push, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 2 {
		t.Errorf("ListSyncRuns(push) = %d runs, want 2", len(pushes))
	}

	page, err := store.ListSyncRuns(ctx, nil, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != "b" {
		t.Errorf("ListSyncRuns(limit 2, offset 2) = %v", page)
	}

	removed, err := store.PruneSyncRuns(ctx, 1)
	if err != nil {
		t.Fatalf("PruneSyncRuns() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("PruneSyncRuns() removed %d, want 3", removed)
	}
	if all, _ := store.ListSyncRuns(ctx, nil, 10, 0); len(all) != 1 || all[0].ID != "d" {
		t.Errorf("after prune = %v", all)
	}
}

func TestAuditEntries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	resource := "environments.dev"
	details := `{"region":"us-west-2"}`
	entries := []*AuditEntry{
		{Action: "AddEnvironment", Actor: "alice", Resource: &resource, Details: &details, Timestamp: base},
		{Action: "SetCurrentEnvironment", Actor: "alice", Resource: &resource, Timestamp: base.Add(time.Second)},
		{Action: "AddEnvironment", Actor: "bob", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := store.CreateAuditEntry(ctx, e); err != nil {
			t.Fatalf("CreateAuditEntry() error = %v", err)
		}
		if e.ID == 0 {
			t.Error("CreateAuditEntry() did not assign an ID")
		}
	}

	tests := []struct {
		name   string
		action *string
		actor  *string
		want   int
	}{
		{"all", nil, nil, 3},
		{"by action", strPtr("AddEnvironment"), nil, 2},
		{"by actor", nil, strPtr("alice"), 2},
		{"by both", strPtr("AddEnvironment"), strPtr("bob"), 1},
		{"no match", strPtr("RemoveEnvironment"), nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListAuditEntries(ctx, tt.action, tt.actor, 10, 0)
			if err != nil {
				t.Fatalf("ListAuditEntries() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListAuditEntries() = %d entries, want %d", len(got), tt.want)
			}
		})
	}

	latest, _ := store.ListAuditEntries(ctx, nil, nil, 1, 0)
	if len(latest) != 1 || latest[0].Actor != "bob" {
		t.Errorf("newest entry = %+v", latest)
	}
	first, _ := store.ListAuditEntries(ctx, nil, strPtr("alice"), 10, 0)
	if first[1].Details == nil || *first[1].Details != details {
		t.Errorf("Details = %v", first[1].Details)
	}
}

func strPtr(s string) *string { return &s }
