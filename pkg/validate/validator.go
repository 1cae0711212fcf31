package validate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// Warning codes.
const (
	WarnRepositoryMismatch = "RepositoryMismatch"
)

// Result holds the findings of one validation pass.
type Result struct {
	Violations []engine.Violation `json:"violations,omitempty"`
	Warnings   []engine.Violation `json:"warnings,omitempty"`
}

// OK reports whether the document has no hard violations.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns a validation error carrying every violation, or nil.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return engine.NewValidationError("configuration document is invalid", r.Violations)
}

func (r *Result) fail(code, path, format string, args ...interface{}) {
	r.Violations = append(r.Violations, engine.Violation{
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: engine.SeverityError,
	})
}

func (r *Result) warn(code, path, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, engine.Violation{
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: engine.SeverityWarning,
	})
}

// Validator checks whole-document invariants. It never modifies the document,
// so validating an already valid document yields the same result.
type Validator struct {
	structs *validator.Validate
	logger  zerolog.Logger
}

// New creates a validator. Warnings are logged to logger.
func New(logger zerolog.Logger) *Validator {
	return &Validator{
		structs: newStructValidator(),
		logger:  logger.With().Str("component", "validate").Logger(),
	}
}

// Validate runs every check over doc.
func (v *Validator) Validate(doc *model.Document) *Result {
	res := &Result{}
	if doc == nil {
		res.fail(engine.ErrCodeInvalidField, "", "document is empty")
		return res
	}

	v.checkFields(doc, res)
	v.checkEnvironments(doc, res)
	v.checkGlobalResources(doc, res)

	sortViolations(res.Violations)
	sortViolations(res.Warnings)

	for _, w := range res.Warnings {
		v.logger.Warn().
			Str("code", w.Code).
			Str("path", w.Path).
			Msg(w.Message)
	}
	return res
}

func (v *Validator) checkFields(doc *model.Document, res *Result) {
	err := v.structs.Struct(doc)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.fail(engine.ErrCodeInvalidField, "", "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		res.fail(engine.ErrCodeInvalidField, fieldPath(fe.Namespace()),
			"value %q fails %q rule", fmt.Sprint(fe.Value()), ruleName(fe))
	}
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

func (v *Validator) checkEnvironments(doc *model.Document, res *Result) {
	if len(doc.Environments) == 0 {
		if doc.CurrentEnvironment != "" {
			res.fail(engine.ErrCodeUnknownCurrentEnvironment, "current_environment",
				"current environment %q does not exist", doc.CurrentEnvironment)
		}
		return
	}
	if env, ok := doc.Environments[doc.CurrentEnvironment]; !ok || env == nil {
		res.fail(engine.ErrCodeUnknownCurrentEnvironment, "current_environment",
			"current environment %q does not exist", doc.CurrentEnvironment)
	}

	seen := make(map[string]string, len(doc.Environments))
	for _, key := range doc.EnvironmentNames() {
		env := doc.Environments[key]
		path := "environments." + key
		if env == nil {
			res.fail(engine.ErrCodeInvalidField, path, "environment entry is empty")
			continue
		}
		if env.Name != key {
			res.fail(engine.ErrCodeNameMismatch, path+".name",
				"environment name %q does not match its key %q", env.Name, key)
		}
		if other, dup := seen[env.Name]; dup {
			res.fail(engine.ErrCodeDuplicateName, path,
				"environment name %q is already used by %q", env.Name, other)
		} else {
			seen[env.Name] = key
		}
		v.checkRuntimes(doc, key, env, res)
	}
}

func (v *Validator) checkRuntimes(doc *model.Document, envKey string, env *model.Environment, res *Result) {
	if env.DefaultAgentRuntime != "" {
		if rt, ok := env.AgentRuntimes[env.DefaultAgentRuntime]; !ok || rt == nil {
			res.fail(engine.ErrCodeDanglingReference, "environments."+envKey+".default_agent_runtime",
				"default agent runtime %q does not exist", env.DefaultAgentRuntime)
		}
	}

	seen := make(map[string]string, len(env.AgentRuntimes))
	for _, key := range env.RuntimeNames() {
		rt := env.AgentRuntimes[key]
		path := model.RuntimePath(envKey, key)
		if rt == nil {
			res.fail(engine.ErrCodeInvalidField, path, "agent runtime entry is empty")
			continue
		}
		if rt.Name != key {
			res.fail(engine.ErrCodeNameMismatch, path+".name",
				"agent runtime name %q does not match its key %q", rt.Name, key)
		}
		if other, dup := seen[rt.Name]; dup {
			res.fail(engine.ErrCodeDuplicateName, path,
				"agent runtime name %q is already used by %q", rt.Name, other)
		} else {
			seen[rt.Name] = key
		}
		if rt.Region != "" && rt.Region != env.Region {
			res.fail(engine.ErrCodeRegionMismatch, path+".region",
				"region %s does not match environment region %s", rt.Region, env.Region)
		}
		if _, ok := doc.GlobalResources.ECRRepositories[rt.PrimaryECRRepository]; !ok && rt.PrimaryECRRepository != "" {
			res.warn(engine.ErrCodeDanglingReference, path+".primary_ecr_repository",
				"ECR repository %q is not registered in global resources", rt.PrimaryECRRepository)
		}
		checkVersions(doc, path, rt, res)
	}
}

func checkVersions(doc *model.Document, path string, rt *model.AgentRuntime, res *Result) {
	for _, id := range rt.VersionIDs() {
		ver := rt.Versions[id]
		vpath := path + ".versions." + id
		if ver.VersionID != id {
			res.fail(engine.ErrCodeNameMismatch, vpath+".version_id",
				"version id %q does not match its key %q", ver.VersionID, id)
		}
		if n, err := model.ParseVersionID(id); err != nil {
			res.fail(engine.ErrCodeInvalidVersionID, vpath, "%v", err)
		} else if n > rt.VersionSequence {
			res.fail(engine.ErrCodeInvalidVersionID, vpath,
				"version ordinal %d is above the allocated sequence %d", n, rt.VersionSequence)
		}
		if ver.ECRRepositoryName == "" {
			continue
		}
		if _, ok := doc.GlobalResources.ECRRepositories[ver.ECRRepositoryName]; !ok {
			res.warn(engine.ErrCodeDanglingReference, vpath+".ecr_repository_name",
				"ECR repository %q is not registered in global resources", ver.ECRRepositoryName)
		}
		if rt.PrimaryECRRepository != "" && ver.ECRRepositoryName != rt.PrimaryECRRepository {
			res.warn(WarnRepositoryMismatch, vpath+".ecr_repository_name",
				"version uses repository %q instead of primary repository %q",
				ver.ECRRepositoryName, rt.PrimaryECRRepository)
		}
	}

	endpoints := make([]string, 0, len(rt.Endpoints))
	for name := range rt.Endpoints {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)
	for _, name := range endpoints {
		target := rt.Endpoints[name]
		if _, ok := rt.Versions[target]; !ok {
			res.fail(engine.ErrCodeInvalidEndpointTarget, path+".endpoints."+name,
				"endpoint %q targets missing version %q", name, target)
		}
	}
	if len(rt.Versions) > 0 {
		if _, ok := rt.Endpoints[model.DefaultEndpoint]; !ok {
			res.fail(engine.ErrCodeMissingDefaultEndpoint, path+".endpoints",
				"runtime has versions but no %s endpoint", model.DefaultEndpoint)
		}
	}
	if rt.LatestVersion != "" {
		if _, ok := rt.Versions[rt.LatestVersion]; !ok {
			res.fail(engine.ErrCodeDanglingReference, path+".latest_version_id",
				"latest version %q does not exist", rt.LatestVersion)
		}
	}
}

func (v *Validator) checkGlobalResources(doc *model.Document, res *Result) {
	for key, repo := range doc.GlobalResources.ECRRepositories {
		path := "global_resources.ecr_repositories." + key
		if repo == nil {
			res.fail(engine.ErrCodeInvalidField, path, "ECR repository entry is empty")
			continue
		}
		if repo.Name != key {
			res.fail(engine.ErrCodeNameMismatch, path+".name",
				"repository name %q does not match its key %q", repo.Name, key)
		}
	}
	for key, role := range doc.GlobalResources.IAMRoles {
		path := "global_resources.iam_roles." + key
		if role == nil {
			res.fail(engine.ErrCodeInvalidField, path, "IAM role entry is empty")
			continue
		}
		if role.Name != key {
			res.fail(engine.ErrCodeNameMismatch, path+".name",
				"role name %q does not match its key %q", role.Name, key)
		}
	}
}

func sortViolations(vs []engine.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Code < vs[j].Code
	})
}
