package versions

import (
	"fmt"
	"time"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// DeploymentSpec describes the artifact a new version deploys.
type DeploymentSpec struct {
	ECRRepositoryName    string
	ImageTag             string
	ExecutionRoleARN     string
	NetworkMode          model.NetworkMode
	Protocol             model.ServerProtocol
	EnvironmentVariables map[string]string
	Description          string
}

// Manager enforces immutable versioning on a single agent runtime. Every
// method either applies its change completely or leaves the runtime untouched.
type Manager struct {
	now func() time.Time
}

// NewManager creates a manager using the given clock. A nil clock uses time.Now.
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now}
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

// NextOrdinal returns the ordinal the next created version will receive.
func NextOrdinal(rt *model.AgentRuntime) int {
	return max(model.MaxOrdinal(rt.Versions), rt.VersionSequence) + 1
}

// CreateVersion appends a new version in CREATING status and makes it the
// latest version. Endpoints are not moved, except that the first version ever
// created becomes the target of the DEFAULT endpoint.
func (m *Manager) CreateVersion(rt *model.AgentRuntime, spec DeploymentSpec) (model.AgentRuntimeVersion, error) {
	if spec.ImageTag == "" {
		return model.AgentRuntimeVersion{}, engine.NewValidationError("image tag is required", []engine.Violation{{
			Code:     engine.ErrCodeInvalidField,
			Path:     "image_tag",
			Message:  "image tag is required",
			Severity: engine.SeverityError,
		}}).WithResource(rt.Name).WithOperation("createVersion")
	}

	repo := spec.ECRRepositoryName
	if repo == "" {
		repo = rt.PrimaryECRRepository
	}
	network := spec.NetworkMode
	if network == "" {
		network = model.NetworkModePublic
	}
	protocol := spec.Protocol
	if protocol == "" {
		protocol = model.ProtocolHTTP
	}

	ordinal := NextOrdinal(rt)
	now := m.timestamp()
	v := model.AgentRuntimeVersion{
		VersionID:            model.FormatVersionID(ordinal),
		AgentRuntimeID:       rt.AgentRuntimeID,
		ECRRepositoryName:    repo,
		ImageTag:             spec.ImageTag,
		Status:               model.VersionCreating,
		ExecutionRoleARN:     spec.ExecutionRoleARN,
		NetworkMode:          network,
		Protocol:             protocol,
		EnvironmentVariables: copyVars(spec.EnvironmentVariables),
		Description:          spec.Description,
		CreatedAt:            now,
	}

	if rt.Versions == nil {
		rt.Versions = map[string]model.AgentRuntimeVersion{}
	}
	if rt.Endpoints == nil {
		rt.Endpoints = map[string]string{}
	}
	first := rt.VersionSequence == 0 && len(rt.Versions) == 0

	rt.Versions[v.VersionID] = v
	rt.VersionSequence = ordinal
	rt.LatestVersion = v.VersionID
	rt.UpdatedAt = now
	if first {
		rt.Endpoints[model.DefaultEndpoint] = v.VersionID
	}
	return v, nil
}

// MarkReady moves a CREATING version to READY.
func (m *Manager) MarkReady(rt *model.AgentRuntime, id string) (model.AgentRuntimeVersion, error) {
	return m.transition(rt, id, model.VersionReady, "")
}

// MarkFailed moves a CREATING version to FAILED and records the reason.
func (m *Manager) MarkFailed(rt *model.AgentRuntime, id, reason string) (model.AgentRuntimeVersion, error) {
	return m.transition(rt, id, model.VersionFailed, reason)
}

// MarkDeleting flags a terminal version for removal. A version that an
// endpoint still targets cannot be flagged.
func (m *Manager) MarkDeleting(rt *model.AgentRuntime, id string) (model.AgentRuntimeVersion, error) {
	if err := checkUnreferenced(rt, id, "markDeleting"); err != nil {
		return model.AgentRuntimeVersion{}, err
	}
	return m.transition(rt, id, model.VersionDeleting, "")
}

// ApplyOutcome records the result reported by the provisioning layer.
// A CREATING outcome only records the remote identifiers.
func (m *Manager) ApplyOutcome(rt *model.AgentRuntime, id string, outcome engine.ProvisionOutcome) (model.AgentRuntimeVersion, error) {
	if _, err := lookup(rt, id, "applyOutcome"); err != nil {
		return model.AgentRuntimeVersion{}, err
	}

	var (
		v   model.AgentRuntimeVersion
		err error
	)
	switch outcome.Status {
	case engine.ProvisionReady:
		v, err = m.MarkReady(rt, id)
	case engine.ProvisionFailed:
		reason := outcome.FailureReason
		if reason == "" {
			reason = "provisioning failed"
		}
		v, err = m.MarkFailed(rt, id, reason)
	case engine.ProvisionCreating:
		v = rt.Versions[id]
	default:
		return model.AgentRuntimeVersion{}, engine.NewVersionStateError(engine.ErrCodeInvalidTransition,
			fmt.Sprintf("unknown provisioning status %q", outcome.Status)).
			WithResource(id).WithOperation("applyOutcome")
	}
	if err != nil {
		return model.AgentRuntimeVersion{}, err
	}

	if outcome.RemoteID != "" {
		rt.AgentRuntimeID = outcome.RemoteID
	}
	if outcome.RemoteARN != "" {
		rt.AgentRuntimeARN = outcome.RemoteARN
	}
	// The first version is created before the runtime exists remotely.
	if v.AgentRuntimeID == "" && rt.AgentRuntimeID != "" {
		v.AgentRuntimeID = rt.AgentRuntimeID
		rt.Versions[id] = v
	}
	return v, nil
}

// transition replaces the version record with a copy in the new status.
func (m *Manager) transition(rt *model.AgentRuntime, id string, to model.VersionStatus, reason string) (model.AgentRuntimeVersion, error) {
	op := transitionOps[to]
	v, err := lookup(rt, id, op)
	if err != nil {
		return model.AgentRuntimeVersion{}, err
	}
	if !allowed(v.Status, to) {
		return model.AgentRuntimeVersion{}, engine.NewVersionStateError(engine.ErrCodeInvalidTransition,
			fmt.Sprintf("version %s cannot move from %s to %s", id, v.Status, to)).
			WithResource(id).WithOperation(op)
	}

	v.Status = to
	if to == model.VersionFailed {
		v.FailureReason = reason
	}
	rt.Versions[id] = v
	rt.UpdatedAt = m.timestamp()
	return v, nil
}

var transitionOps = map[model.VersionStatus]string{
	model.VersionReady:    "markReady",
	model.VersionFailed:   "markFailed",
	model.VersionDeleting: "markDeleting",
}

func allowed(from, to model.VersionStatus) bool {
	switch to {
	case model.VersionReady, model.VersionFailed:
		return from == model.VersionCreating
	case model.VersionDeleting:
		return from == model.VersionReady || from == model.VersionFailed
	default:
		return false
	}
}

// RepointEndpoint sets an endpoint to an existing version, creating the endpoint if needed.
// This is the promotion and rollback primitive.
func (m *Manager) RepointEndpoint(rt *model.AgentRuntime, endpoint, id string) error {
	if endpoint == "" {
		return engine.NewValidationError("endpoint name is required", []engine.Violation{{
			Code:     engine.ErrCodeInvalidField,
			Path:     "endpoints",
			Message:  "endpoint name is required",
			Severity: engine.SeverityError,
		}}).WithResource(rt.Name).WithOperation("repointEndpoint")
	}
	if _, ok := rt.Versions[id]; !ok {
		return engine.NewValidationError("endpoint target does not exist", []engine.Violation{{
			Code:     engine.ErrCodeInvalidEndpointTarget,
			Path:     "endpoints." + endpoint,
			Message:  fmt.Sprintf("version %q does not exist", id),
			Severity: engine.SeverityError,
		}}).WithResource(rt.Name).WithOperation("repointEndpoint")
	}
	if rt.Endpoints == nil {
		rt.Endpoints = map[string]string{}
	}
	rt.Endpoints[endpoint] = id
	rt.UpdatedAt = m.timestamp()
	return nil
}

// RemoveEndpoint deletes a non-DEFAULT endpoint.
func (m *Manager) RemoveEndpoint(rt *model.AgentRuntime, endpoint string) error {
	if endpoint == model.DefaultEndpoint {
		return engine.NewValidationError("the DEFAULT endpoint cannot be removed", []engine.Violation{{
			Code:     engine.ErrCodeMissingDefaultEndpoint,
			Path:     "endpoints." + endpoint,
			Message:  "the DEFAULT endpoint cannot be removed",
			Severity: engine.SeverityError,
		}}).WithResource(rt.Name).WithOperation("removeEndpoint")
	}
	if _, ok := rt.Endpoints[endpoint]; !ok {
		return engine.NewNotFoundError("endpoints."+endpoint,
			fmt.Sprintf("endpoint %q does not exist", endpoint)).WithOperation("removeEndpoint")
	}
	delete(rt.Endpoints, endpoint)
	rt.UpdatedAt = m.timestamp()
	return nil
}

// DeleteVersion removes an unreferenced version. The ordinal is not reused and
// the latest version moves to the highest remaining ordinal.
func (m *Manager) DeleteVersion(rt *model.AgentRuntime, id string) error {
	if _, err := lookup(rt, id, "deleteVersion"); err != nil {
		return err
	}
	if err := checkUnreferenced(rt, id, "deleteVersion"); err != nil {
		return err
	}

	// Keep the high-water mark even for documents written before it was tracked.
	rt.VersionSequence = max(rt.VersionSequence, model.MaxOrdinal(rt.Versions))
	delete(rt.Versions, id)
	if rt.LatestVersion == id {
		rt.LatestVersion = ""
		if n := model.MaxOrdinal(rt.Versions); n > 0 {
			rt.LatestVersion = model.FormatVersionID(n)
		}
	}
	rt.UpdatedAt = m.timestamp()
	return nil
}

// ResolveEndpoint returns the version an endpoint targets. An empty name resolves DEFAULT.
func ResolveEndpoint(rt *model.AgentRuntime, endpoint string) (model.AgentRuntimeVersion, error) {
	if endpoint == "" {
		endpoint = model.DefaultEndpoint
	}
	id, ok := rt.Endpoints[endpoint]
	if !ok {
		return model.AgentRuntimeVersion{}, engine.NewNotFoundError("endpoints."+endpoint,
			fmt.Sprintf("endpoint %q does not exist for agent runtime %q", endpoint, rt.Name))
	}
	return lookup(rt, id, "resolveEndpoint")
}

func lookup(rt *model.AgentRuntime, id, op string) (model.AgentRuntimeVersion, error) {
	v, ok := rt.Versions[id]
	if !ok {
		return model.AgentRuntimeVersion{}, engine.NewNotFoundError(id,
			fmt.Sprintf("version %q does not exist for agent runtime %q", id, rt.Name)).WithOperation(op)
	}
	return v, nil
}

func checkUnreferenced(rt *model.AgentRuntime, id, op string) error {
	if refs := rt.EndpointsFor(id); len(refs) > 0 {
		return engine.NewVersionStateError(engine.ErrCodeVersionInUse,
			fmt.Sprintf("version %s is targeted by endpoints %v", id, refs)).
			WithResource(id).WithOperation(op).WithDetail("endpoints", refs)
	}
	return nil
}

func copyVars(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
