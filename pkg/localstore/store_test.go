package localstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/validate"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	schema, err := validate.NewSchema()
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	store, err := New(Config{
		Path:        filepath.Join(t.TempDir(), ".agentcore", "config.yaml"),
		LockTimeout: 100 * time.Millisecond,
		RetryDelay:  10 * time.Millisecond,
	}, validate.New(logger), schema, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func addDev(doc *model.Document) error {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc.Environments["dev"] = &model.Environment{
		Name:      "dev",
		Region:    "us-west-2",
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.CurrentEnvironment = "dev"
	return nil
}

func TestLoadMissingFile(t *testing.T) {
	store := setupTestStore(t)
	doc, res, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Environments) != 0 || !res.OK() {
		t.Errorf("Load() = %+v, %+v, want empty valid document", doc, res)
	}
	if store.Exists() {
		t.Error("Load() created the document file")
	}
}

func TestMutateCommits(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	commit, err := store.Mutate(ctx, addDev)
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if !commit.Changed {
		t.Error("Changed = false for first write")
	}

	doc, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.CurrentEnvironment != "dev" || doc.Environments["dev"].Region != "us-west-2" {
		t.Errorf("loaded document = %+v", doc)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "current_environment: dev") {
		t.Errorf("file does not start with current_environment:\n%s", data)
	}

	commit, err = store.Mutate(ctx, func(doc *model.Document) error { return nil })
	if err != nil {
		t.Fatalf("Mutate(no-op) error = %v", err)
	}
	if commit.Changed {
		t.Error("Changed = true for no-op mutation")
	}
}

func TestMutateRejectsInvalidDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	if _, err := store.Mutate(ctx, addDev); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(store.Path())

	_, err := store.Mutate(ctx, func(doc *model.Document) error {
		doc.Environments["dev"].AgentRuntimes["bot"] = &model.AgentRuntime{
			Name:                 "bot",
			Region:               "us-east-1",
			PrimaryECRRepository: "bot-repo",
		}
		return nil
	})
	if !engine.HasCode(err, engine.ErrCodeRegionMismatch) {
		t.Fatalf("Mutate() error = %v, want RegionMismatch", err)
	}

	after, _ := os.ReadFile(store.Path())
	if !bytes.Equal(before, after) {
		t.Error("document changed after rejected mutation")
	}

	// The lock must have been released on the failure path.
	if _, err := store.Mutate(ctx, func(*model.Document) error { return nil }); err != nil {
		t.Errorf("Mutate() after failure error = %v", err)
	}
}

func TestMutateCallbackError(t *testing.T) {
	store := setupTestStore(t)
	boom := errors.New("boom")
	if _, err := store.Mutate(context.Background(), func(*model.Document) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Mutate() error = %v, want callback error", err)
	}
	if store.Exists() {
		t.Error("document written after callback error")
	}
}

func TestLockContention(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	if _, err := store.Mutate(ctx, addDev); err != nil {
		t.Fatal(err)
	}

	holder := flock.New(store.Path() + ".lock")
	if err := holder.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	start := time.Now()
	_, err := store.Mutate(ctx, func(*model.Document) error { return nil })
	if !engine.IsLocalStoreBusy(err) {
		t.Fatalf("Mutate() error = %v, want LocalStoreBusy", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Mutate() blocked for %v", elapsed)
	}
	if _, _, err := store.Load(ctx); !engine.IsLocalStoreBusy(err) {
		t.Errorf("Load() error = %v, want LocalStoreBusy under exclusive lock", err)
	}

	if err := holder.Unlock(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Mutate(ctx, func(*model.Document) error { return nil }); err != nil {
		t.Errorf("Mutate() after release error = %v", err)
	}
}

func TestReplaceRepairsInvalidFile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("current_environment: ghost\nenvironments: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Load(ctx); !engine.IsValidation(err) {
		t.Fatalf("Load() error = %v, want validation error", err)
	}
	if _, err := store.Mutate(ctx, func(*model.Document) error { return nil }); err == nil {
		t.Fatal("Mutate() on invalid base succeeded")
	}

	doc := model.NewDocument()
	if err := addDev(doc); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Replace(ctx, doc); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if _, _, err := store.Load(ctx); err != nil {
		t.Errorf("Load() after Replace error = %v", err)
	}
}

func TestExportImport(t *testing.T) {
	src := setupTestStore(t)
	ctx := context.Background()
	if _, err := src.Mutate(ctx, addDev); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := src.Export(ctx, &buf, model.FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := setupTestStore(t)
	if _, err := dst.Import(ctx, &buf, model.FormatJSON); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	doc, _, err := dst.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc.CurrentEnvironment != "dev" {
		t.Errorf("imported current environment = %q", doc.CurrentEnvironment)
	}

	if _, err := dst.Import(ctx, strings.NewReader("not: [valid"), model.FormatYAML); !engine.IsValidation(err) {
		t.Errorf("Import(garbage) error = %v, want validation error", err)
	}
}
