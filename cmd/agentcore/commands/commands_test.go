package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// cli runs commands against a settings file in a temporary directory. The
// remote backend is the in-process memory mirror.
type cli struct {
	t        *testing.T
	dir      string
	settings string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	content := "document_path: " + filepath.Join(dir, "agentcore.yaml") + "\n" +
		"remote:\n  backend: memory\n" +
		"journal:\n  enabled: true\n  path: " + filepath.Join(dir, "journal.db") + "\n" +
		"telemetry:\n  logging:\n    level: error\n"
	if err := os.WriteFile(settings, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	return &cli{t: t, dir: dir, settings: settings}
}

func (c *cli) exec(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	root := newRootCommand("test", "none", "today")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--settings", c.settings}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.exec(args...)
	if err != nil {
		c.t.Fatalf("agentcore %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (c *cli) document() *model.Document {
	c.t.Helper()
	data, err := os.ReadFile(filepath.Join(c.dir, "agentcore.yaml"))
	if err != nil {
		c.t.Fatalf("failed to read document: %v", err)
	}
	doc, err := model.Decode(data, model.FormatYAML)
	if err != nil {
		c.t.Fatalf("failed to decode document: %v", err)
	}
	return doc
}

func TestDeploymentWorkflow(t *testing.T) {
	c := newCLI(t)

	out := c.run("init", "--env", "dev", "--region", "us-west-2")
	if !strings.Contains(out, "Added environment dev") {
		t.Errorf("init output = %q", out)
	}

	c.run("repo", "add", "bot-repo", "--uri", "123456789012.dkr.ecr.us-west-2.amazonaws.com/bot-repo", "--region", "us-west-2")
	c.run("agent", "add", "support-bot", "--repo", "bot-repo")

	out = c.run("version", "create", "--tag", "v1")
	if !strings.Contains(out, "Created version V1") {
		t.Errorf("create output = %q", out)
	}
	c.run("version", "ready", "V1", "--runtime-id", "rt-123")
	c.run("version", "create", "--tag", "v2")
	c.run("version", "ready", "V2")
	c.run("endpoint", "set", "prod", "V2")

	out = c.run("endpoint", "resolve", "prod")
	if !strings.Contains(out, "bot-repo:v2") {
		t.Errorf("resolve output = %q, want the v2 image", out)
	}
	out = c.run("endpoint", "resolve")
	if !strings.Contains(out, "V1") {
		t.Errorf("DEFAULT should still target V1, got %q", out)
	}

	doc := c.document()
	rt := doc.Environments["dev"].AgentRuntimes["support-bot"]
	if rt.AgentRuntimeID != "rt-123" {
		t.Errorf("AgentRuntimeID = %q, want rt-123", rt.AgentRuntimeID)
	}
	if rt.LatestVersion != "V2" {
		t.Errorf("LatestVersion = %q, want V2", rt.LatestVersion)
	}

	out = c.run("validate")
	if !strings.Contains(out, "is valid") {
		t.Errorf("validate output = %q", out)
	}

	out = c.run("--json", "history", "audit")
	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("audit output is not JSON: %v\n%s", err, out)
	}
	// AddEnvironment, AddECRRepository, AddAgentRuntime, 2x CreateVersion,
	// 2x RecordOutcome, RepointEndpoint
	if len(entries) != 8 {
		t.Errorf("got %d audit entries, want 8", len(entries))
	}
}

func TestDeleteReferencedVersionFails(t *testing.T) {
	c := newCLI(t)
	c.run("init", "--env", "dev", "--region", "us-west-2")
	c.run("repo", "add", "bot-repo")
	c.run("agent", "add", "support-bot", "--repo", "bot-repo")
	c.run("version", "create", "--tag", "v1")

	_, err := c.exec("version", "delete", "V1")
	if err == nil {
		t.Fatal("deleting the DEFAULT target should fail")
	}
	if _, ok := c.document().Environments["dev"].AgentRuntimes["support-bot"].Versions["V1"]; !ok {
		t.Error("V1 should still exist")
	}
}

func TestSyncPush(t *testing.T) {
	c := newCLI(t)
	c.run("init", "--env", "dev", "--region", "us-west-2")

	_, err := c.exec("sync", "push")
	if !engine.HasCode(err, engine.ErrCodeSyncDisabled) {
		t.Fatalf("push with cloud sync off: err = %v, want SyncDisabled", err)
	}

	c.run("sync", "enable")
	out := c.run("sync", "push")
	if !strings.Contains(out, "Pushed to /agentcore/config") {
		t.Errorf("push output = %q", out)
	}
	if c.document().GlobalResources.SyncConfig.LastPush == nil {
		t.Error("LastPush should be stamped")
	}

	out = c.run("--json", "history", "runs", "--operation", "push")
	var runs []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs output is not JSON: %v\n%s", err, out)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d push runs, want 2", len(runs))
	}
	if runs[0]["final_state"] != "DONE" {
		t.Errorf("latest run state = %v, want DONE", runs[0]["final_state"])
	}
}

func TestValidateRejectsRegionMismatch(t *testing.T) {
	c := newCLI(t)
	c.run("init")

	bad := filepath.Join(c.dir, "bad.yaml")
	content := `current_environment: dev
environments:
  dev:
    name: dev
    region: us-west-2
    agent_runtimes:
      bot:
        name: bot
        region: eu-west-1
        primary_ecr_repository: bot-repo
        version_sequence: 0
global_resources:
  ecr_repositories:
    bot-repo:
      name: bot-repo
  iam_roles: {}
  sync_config:
    parameter_store_prefix: /agentcore
    sync_interval_minutes: 60
`
	if err := os.WriteFile(bad, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	out, err := c.exec("validate", bad)
	if !engine.IsValidation(err) {
		t.Fatalf("err = %v, want a validation error", err)
	}
	if !strings.Contains(out, "✗") {
		t.Errorf("validate output should list violations, got %q", out)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	c := newCLI(t)
	c.run("init", "--env", "dev", "--region", "us-west-2")
	c.run("env", "set-var", "LOG_LEVEL", "debug")

	backup := filepath.Join(c.dir, "backup.json")
	c.run("export", "--out", backup)

	c.run("env", "add", "prod", "--region", "us-east-1")
	if _, ok := c.document().Environments["prod"]; !ok {
		t.Fatal("prod should exist before import")
	}

	c.run("import", backup)
	doc := c.document()
	if _, ok := doc.Environments["prod"]; ok {
		t.Error("import should replace the document")
	}
	if got := doc.Environments["dev"].EnvironmentVariables["LOG_LEVEL"]; got != "debug" {
		t.Errorf("LOG_LEVEL = %q, want debug", got)
	}
}
