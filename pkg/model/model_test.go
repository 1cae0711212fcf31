package model

import (
	"strings"
	"testing"
	"time"
)

func sampleDocument() *Document {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := NewDocument()
	doc.CurrentEnvironment = "dev"
	doc.GlobalResources.ECRRepositories["bot-repo"] = &ECRRepository{
		Name:          "bot-repo",
		Region:        "us-west-2",
		RepositoryURI: "123456789012.dkr.ecr.us-west-2.amazonaws.com/bot-repo",
		AvailableTags: []string{"v1", "v2"},
		CreatedAt:     created,
	}
	doc.Environments["dev"] = &Environment{
		Name:                 "dev",
		Region:               "us-west-2",
		EnvironmentVariables: map[string]string{"LOG_LEVEL": "debug"},
		AgentRuntimes: map[string]*AgentRuntime{
			"bot": {
				Name:                 "bot",
				Region:               "us-west-2",
				PrimaryECRRepository: "bot-repo",
				Versions: map[string]AgentRuntimeVersion{
					"V1": {VersionID: "V1", ECRRepositoryName: "bot-repo", ImageTag: "v1", Status: VersionReady, CreatedAt: created},
					"V2": {VersionID: "V2", ECRRepositoryName: "bot-repo", ImageTag: "v2", Status: VersionCreating, CreatedAt: created},
				},
				Endpoints:       map[string]string{DefaultEndpoint: "V2", "stable": "V1"},
				LatestVersion:   "V2",
				VersionSequence: 2,
				CreatedAt:       created,
			},
		},
		CreatedAt: created,
	}
	return doc
}

func TestVersionIDs(t *testing.T) {
	tests := []struct {
		id      string
		want    int
		wantErr bool
	}{
		{id: "V1", want: 1},
		{id: "V42", want: 42},
		{id: "V0", wantErr: true},
		{id: "V01", wantErr: true},
		{id: "v1", wantErr: true},
		{id: "V", wantErr: true},
		{id: "V-1", wantErr: true},
		{id: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseVersionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseVersionID(%q) = %d, want %d", tt.id, got, tt.want)
			}
			if !tt.wantErr && FormatVersionID(got) != tt.id {
				t.Errorf("FormatVersionID(%d) = %q, want %q", got, FormatVersionID(got), tt.id)
			}
		})
	}
}

func TestMaxOrdinalAndOrdering(t *testing.T) {
	rt := &AgentRuntime{Versions: map[string]AgentRuntimeVersion{
		"V10": {VersionID: "V10"},
		"V2":  {VersionID: "V2"},
		"V9":  {VersionID: "V9"},
	}}
	if got := MaxOrdinal(rt.Versions); got != 10 {
		t.Errorf("MaxOrdinal() = %d, want 10", got)
	}
	ids := rt.VersionIDs()
	if strings.Join(ids, ",") != "V2,V9,V10" {
		t.Errorf("VersionIDs() = %v, want ordinal order", ids)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	clone := doc.Clone()

	clone.Environments["dev"].EnvironmentVariables["LOG_LEVEL"] = "info"
	clone.Environments["dev"].AgentRuntimes["bot"].Endpoints["stable"] = "V2"
	delete(clone.Environments["dev"].AgentRuntimes["bot"].Versions, "V1")
	clone.GlobalResources.ECRRepositories["bot-repo"].AvailableTags[0] = "changed"
	now := time.Now()
	clone.GlobalResources.SyncConfig.LastPush = &now

	orig := doc.Environments["dev"]
	if orig.EnvironmentVariables["LOG_LEVEL"] != "debug" {
		t.Error("environment variables were shared")
	}
	if orig.AgentRuntimes["bot"].Endpoints["stable"] != "V1" {
		t.Error("endpoints were shared")
	}
	if _, ok := orig.AgentRuntimes["bot"].Versions["V1"]; !ok {
		t.Error("versions were shared")
	}
	if doc.GlobalResources.ECRRepositories["bot-repo"].AvailableTags[0] != "v1" {
		t.Error("available tags were shared")
	}
	if doc.GlobalResources.SyncConfig.LastPush != nil {
		t.Error("sync config was shared")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			doc := sampleDocument()
			data, err := Encode(doc, format)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data, format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			rt, err := got.Runtime("dev", "bot")
			if err != nil {
				t.Fatalf("Runtime() error = %v", err)
			}
			if rt.Endpoints["stable"] != "V1" || rt.LatestVersion != "V2" {
				t.Errorf("runtime = %+v, endpoints or latest version lost", rt)
			}
			if !rt.Versions["V1"].CreatedAt.Equal(doc.Environments["dev"].AgentRuntimes["bot"].Versions["V1"].CreatedAt) {
				t.Error("created_at changed across round trip")
			}
			if got.GlobalResources.SyncConfig.ParameterStorePrefix != DefaultParameterPrefix {
				t.Errorf("prefix = %q", got.GlobalResources.SyncConfig.ParameterStorePrefix)
			}
		})
	}
}

func TestYAMLUsesFileFormatKeys(t *testing.T) {
	data, err := Encode(sampleDocument(), FormatYAML)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, key := range []string{"current_environment:", "environments:", "global_resources:", "ecr_repositories:", "iam_roles:", "sync_config:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded YAML missing key %q", key)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("current_environment: dev\nenvironmnets: {}\n"), FormatYAML)
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	doc, err := Decode(nil, FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(doc.Environments) != 0 || doc.GlobalResources.SyncConfig.SyncIntervalMinutes != DefaultSyncIntervalMinutes {
		t.Errorf("Decode(empty) = %+v, want new document", doc)
	}
}

func TestContainerURI(t *testing.T) {
	doc := sampleDocument()
	uri, err := doc.ContainerURI("dev", "bot", "V1")
	if err != nil {
		t.Fatalf("ContainerURI() error = %v", err)
	}
	want := "123456789012.dkr.ecr.us-west-2.amazonaws.com/bot-repo:v1"
	if uri != want {
		t.Errorf("ContainerURI() = %q, want %q", uri, want)
	}
	if host := doc.GlobalResources.ECRRepositories["bot-repo"].RegistryURL(); host != "123456789012.dkr.ecr.us-west-2.amazonaws.com" {
		t.Errorf("RegistryURL() = %q", host)
	}

	if _, err := doc.ContainerURI("dev", "bot", "V7"); err == nil {
		t.Error("expected error for unknown version")
	}
	if _, err := doc.ContainerURI("prod", "bot", "V1"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestEndpointsFor(t *testing.T) {
	rt := sampleDocument().Environments["dev"].AgentRuntimes["bot"]
	rt.Endpoints["canary"] = "V2"
	got := rt.EndpointsFor("V2")
	if strings.Join(got, ",") != "DEFAULT,canary" {
		t.Errorf("EndpointsFor(V2) = %v", got)
	}
}
