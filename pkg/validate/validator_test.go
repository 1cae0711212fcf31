package validate

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

func newTestValidator() *Validator {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func validDocument() *model.Document {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := model.NewDocument()
	doc.CurrentEnvironment = "dev"
	doc.GlobalResources.ECRRepositories["bot-repo"] = &model.ECRRepository{
		Name:          "bot-repo",
		RepositoryURI: "123456789012.dkr.ecr.us-west-2.amazonaws.com/bot-repo",
		CreatedAt:     created,
	}
	doc.Environments["dev"] = &model.Environment{
		Name:   "dev",
		Region: "us-west-2",
		AgentRuntimes: map[string]*model.AgentRuntime{
			"bot": {
				Name:                 "bot",
				Region:               "us-west-2",
				PrimaryECRRepository: "bot-repo",
				Versions: map[string]model.AgentRuntimeVersion{
					"V1": {VersionID: "V1", ECRRepositoryName: "bot-repo", ImageTag: "v1", Status: model.VersionReady, CreatedAt: created},
					"V2": {VersionID: "V2", ECRRepositoryName: "bot-repo", ImageTag: "v2", Status: model.VersionReady, CreatedAt: created},
				},
				Endpoints:       map[string]string{model.DefaultEndpoint: "V2", "stable": "V1"},
				LatestVersion:   "V2",
				VersionSequence: 2,
				CreatedAt:       created,
			},
		},
		DefaultAgentRuntime:  "bot",
		EnvironmentVariables: map[string]string{"LOG_LEVEL": "debug"},
		CreatedAt:            created,
	}
	return doc
}

func hasViolation(vs []engine.Violation, code, path string) bool {
	for _, v := range vs {
		if v.Code == code && (path == "" || v.Path == path) {
			return true
		}
	}
	return false
}

func TestValidDocument(t *testing.T) {
	res := newTestValidator().Validate(validDocument())
	if !res.OK() {
		t.Fatalf("Validate() violations = %v", res.Violations)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Validate() warnings = %v, want none", res.Warnings)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
}

func TestEmptyDocumentIsValid(t *testing.T) {
	res := newTestValidator().Validate(model.NewDocument())
	if !res.OK() {
		t.Fatalf("Validate(empty) violations = %v", res.Violations)
	}
}

func TestValidateIsStable(t *testing.T) {
	v := newTestValidator()
	doc := validDocument()
	before, err := model.Encode(doc, model.FormatJSON)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	first := v.Validate(doc)
	second := v.Validate(doc)
	after, _ := model.Encode(doc, model.FormatJSON)

	if first.OK() != second.OK() || len(first.Warnings) != len(second.Warnings) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	if string(before) != string(after) {
		t.Error("Validate() mutated the document")
	}
}

func TestHardViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *model.Document)
		code   string
		path   string
	}{
		{
			name: "region mismatch",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].AgentRuntimes["bot"].Region = "us-east-1"
			},
			code: engine.ErrCodeRegionMismatch,
			path: "environments.dev.agent_runtimes.bot.region",
		},
		{
			name: "unknown current environment",
			mutate: func(doc *model.Document) {
				doc.CurrentEnvironment = "prod"
			},
			code: engine.ErrCodeUnknownCurrentEnvironment,
			path: "current_environment",
		},
		{
			name: "current environment set on empty document",
			mutate: func(doc *model.Document) {
				delete(doc.Environments, "dev")
			},
			code: engine.ErrCodeUnknownCurrentEnvironment,
		},
		{
			name: "endpoint targets missing version",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].AgentRuntimes["bot"].Endpoints["stable"] = "V9"
			},
			code: engine.ErrCodeInvalidEndpointTarget,
			path: "environments.dev.agent_runtimes.bot.endpoints.stable",
		},
		{
			name: "missing default endpoint",
			mutate: func(doc *model.Document) {
				delete(doc.Environments["dev"].AgentRuntimes["bot"].Endpoints, model.DefaultEndpoint)
			},
			code: engine.ErrCodeMissingDefaultEndpoint,
		},
		{
			name: "dangling default runtime",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].DefaultAgentRuntime = "ghost"
			},
			code: engine.ErrCodeDanglingReference,
			path: "environments.dev.default_agent_runtime",
		},
		{
			name: "dangling latest version",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].AgentRuntimes["bot"].LatestVersion = "V3"
			},
			code: engine.ErrCodeDanglingReference,
			path: "environments.dev.agent_runtimes.bot.latest_version_id",
		},
		{
			name: "duplicate environment name",
			mutate: func(doc *model.Document) {
				clone := doc.Environments["dev"].Clone()
				doc.Environments["dev2"] = clone
			},
			code: engine.ErrCodeDuplicateName,
		},
		{
			name: "duplicate runtime name",
			mutate: func(doc *model.Document) {
				env := doc.Environments["dev"]
				env.AgentRuntimes["bot2"] = env.AgentRuntimes["bot"].Clone()
			},
			code: engine.ErrCodeDuplicateName,
		},
		{
			name: "version key mismatch",
			mutate: func(doc *model.Document) {
				rt := doc.Environments["dev"].AgentRuntimes["bot"]
				v := rt.Versions["V1"]
				v.VersionID = "V7"
				rt.Versions["V1"] = v
			},
			code: engine.ErrCodeNameMismatch,
		},
		{
			name: "ordinal above sequence",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].AgentRuntimes["bot"].VersionSequence = 1
			},
			code: engine.ErrCodeInvalidVersionID,
		},
		{
			name: "invalid region",
			mutate: func(doc *model.Document) {
				doc.Environments["dev"].Region = "mars"
			},
			code: engine.ErrCodeInvalidField,
			path: "environments.dev.region",
		},
		{
			name: "invalid status",
			mutate: func(doc *model.Document) {
				rt := doc.Environments["dev"].AgentRuntimes["bot"]
				v := rt.Versions["V1"]
				v.Status = "RUNNING"
				rt.Versions["V1"] = v
			},
			code: engine.ErrCodeInvalidField,
			path: "environments.dev.agent_runtimes.bot.versions.V1.status",
		},
		{
			name: "relative sync prefix",
			mutate: func(doc *model.Document) {
				doc.GlobalResources.SyncConfig.ParameterStorePrefix = "agentcore"
			},
			code: engine.ErrCodeInvalidField,
			path: "global_resources.sync_config.parameter_store_prefix",
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			res := v.Validate(doc)
			if res.OK() {
				t.Fatal("Validate() passed, want violation")
			}
			if !hasViolation(res.Violations, tt.code, tt.path) {
				t.Errorf("violations = %v, want code %s at %q", res.Violations, tt.code, tt.path)
			}
			if !engine.IsValidation(res.Err()) {
				t.Errorf("Err() = %v, want validation error", res.Err())
			}
		})
	}
}

func TestDanglingRepositoryIsWarning(t *testing.T) {
	doc := validDocument()
	delete(doc.GlobalResources.ECRRepositories, "bot-repo")

	res := newTestValidator().Validate(doc)
	if !res.OK() {
		t.Fatalf("Validate() violations = %v, want warnings only", res.Violations)
	}
	if !hasViolation(res.Warnings, engine.ErrCodeDanglingReference, "environments.dev.agent_runtimes.bot.primary_ecr_repository") {
		t.Errorf("warnings = %v, want dangling primary repository", res.Warnings)
	}
}

func TestRepositoryMismatchWarning(t *testing.T) {
	doc := validDocument()
	doc.GlobalResources.ECRRepositories["other-repo"] = &model.ECRRepository{Name: "other-repo"}
	rt := doc.Environments["dev"].AgentRuntimes["bot"]
	v := rt.Versions["V2"]
	v.ECRRepositoryName = "other-repo"
	rt.Versions["V2"] = v

	res := newTestValidator().Validate(doc)
	if !res.OK() {
		t.Fatalf("Validate() violations = %v", res.Violations)
	}
	if !hasViolation(res.Warnings, WarnRepositoryMismatch, "") {
		t.Errorf("warnings = %v, want repository mismatch", res.Warnings)
	}
}

func TestNamePatterns(t *testing.T) {
	if !IsValidRegion("us-gov-west-1") || IsValidRegion("us-west") {
		t.Error("region pattern")
	}
	if !IsValidAgentName("bot") || IsValidAgentName("1bot") || IsValidAgentName("ab") {
		t.Error("agent name pattern")
	}
	if !IsValidEndpointName("DEFAULT") || IsValidEndpointName("blue_green") {
		t.Error("endpoint name pattern")
	}
	if !IsValidRepositoryName("bot-repo") || IsValidRepositoryName("Bot") {
		t.Error("repository name pattern")
	}
}
