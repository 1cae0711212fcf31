package manager

import (
	"context"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/versions"
)

// RuntimeSpec describes a new agent runtime.
type RuntimeSpec struct {
	Name string

	// Region defaults to the environment's region.
	Region string

	PrimaryECRRepository string
	Description          string
	Tags                 map[string]string
}

// AddAgentRuntime creates a runtime in the named (or current) environment. The
// first runtime becomes the environment default.
func (m *Manager) AddAgentRuntime(ctx context.Context, envName string, spec RuntimeSpec) (*MutationResult, error) {
	return m.mutate(ctx, "AddAgentRuntime", envResource(envName, "agent_runtimes."+spec.Name), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		path := model.RuntimePath(env.Name, spec.Name)
		if _, ok := env.AgentRuntimes[spec.Name]; ok {
			return alreadyExists(path, "agent runtime %q already exists in %q", spec.Name, env.Name)
		}
		region := spec.Region
		if region == "" {
			region = env.Region
		}
		now := m.timestamp()
		if env.AgentRuntimes == nil {
			env.AgentRuntimes = map[string]*model.AgentRuntime{}
		}
		env.AgentRuntimes[spec.Name] = &model.AgentRuntime{
			Name:                 spec.Name,
			Region:               region,
			Description:          spec.Description,
			PrimaryECRRepository: spec.PrimaryECRRepository,
			Versions:             map[string]model.AgentRuntimeVersion{},
			Endpoints:            map[string]string{},
			Tags:                 spec.Tags,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if env.DefaultAgentRuntime == "" {
			env.DefaultAgentRuntime = spec.Name
		}
		env.UpdatedAt = now
		return nil
	})
}

// RemoveAgentRuntime deletes a runtime with all its versions and endpoints.
func (m *Manager) RemoveAgentRuntime(ctx context.Context, envName, name string) (*MutationResult, error) {
	return m.mutate(ctx, "RemoveAgentRuntime", envResource(envName, "agent_runtimes."+name), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		if _, err := env.Runtime(name); err != nil {
			return err
		}
		delete(env.AgentRuntimes, name)
		if env.DefaultAgentRuntime == name {
			env.DefaultAgentRuntime = ""
		}
		env.UpdatedAt = m.timestamp()
		return nil
	})
}

// SetDefaultAgentRuntime names the runtime used when none is given.
func (m *Manager) SetDefaultAgentRuntime(ctx context.Context, envName, name string) (*MutationResult, error) {
	return m.mutate(ctx, "SetDefaultAgentRuntime", envResource(envName, "default_agent_runtime"), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		if _, err := env.Runtime(name); err != nil {
			return err
		}
		env.DefaultAgentRuntime = name
		env.UpdatedAt = m.timestamp()
		return nil
	})
}

// CreateVersion appends a CREATING version to a runtime.
func (m *Manager) CreateVersion(ctx context.Context, envName, runtimeName string, spec versions.DeploymentSpec) (*MutationResult, error) {
	return m.versionOp(ctx, "CreateVersion", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		v, err := m.versions.CreateVersion(rt, spec)
		return &v, err
	})
}

// RecordOutcome applies a provisioning outcome to a version.
func (m *Manager) RecordOutcome(ctx context.Context, envName, runtimeName, versionID string, outcome engine.ProvisionOutcome) (*MutationResult, error) {
	return m.versionOp(ctx, "RecordOutcome", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		v, err := m.versions.ApplyOutcome(rt, versionID, outcome)
		return &v, err
	})
}

// MarkVersionDeleting flags an unreferenced terminal version for removal.
func (m *Manager) MarkVersionDeleting(ctx context.Context, envName, runtimeName, versionID string) (*MutationResult, error) {
	return m.versionOp(ctx, "MarkVersionDeleting", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		v, err := m.versions.MarkDeleting(rt, versionID)
		return &v, err
	})
}

// RepointEndpoint points an endpoint at an existing version. This is how
// versions are promoted and rolled back.
func (m *Manager) RepointEndpoint(ctx context.Context, envName, runtimeName, endpoint, versionID string) (*MutationResult, error) {
	return m.versionOp(ctx, "RepointEndpoint", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		if err := m.versions.RepointEndpoint(rt, endpoint, versionID); err != nil {
			return nil, err
		}
		v := rt.Versions[versionID]
		return &v, nil
	})
}

// RemoveEndpoint deletes a non-DEFAULT endpoint.
func (m *Manager) RemoveEndpoint(ctx context.Context, envName, runtimeName, endpoint string) (*MutationResult, error) {
	return m.versionOp(ctx, "RemoveEndpoint", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		return nil, m.versions.RemoveEndpoint(rt, endpoint)
	})
}

// DeleteVersion removes a version no endpoint targets.
func (m *Manager) DeleteVersion(ctx context.Context, envName, runtimeName, versionID string) (*MutationResult, error) {
	return m.versionOp(ctx, "DeleteVersion", envName, runtimeName, func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error) {
		return nil, m.versions.DeleteVersion(rt, versionID)
	})
}

// RefreshVersionStatus asks the provisioner how a version's deployment went
// and records the outcome. The provisioner is called without holding the
// document lock.
func (m *Manager) RefreshVersionStatus(ctx context.Context, envName, runtimeName, versionID string) (*MutationResult, error) {
	if m.provisioner == nil {
		return nil, engine.NewPreconditionError(engine.ErrCodeNotFound, "no provisioner is configured").
			WithOperation("RefreshVersionStatus")
	}

	doc, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	env, rt, err := runtimeIn(doc, envName, runtimeName)
	if err != nil {
		return nil, err
	}
	if versionID == "" {
		versionID = rt.LatestVersion
	}
	v, err := rt.Version(versionID)
	if err != nil {
		return nil, err
	}
	if v.Status != model.VersionCreating {
		return &MutationResult{Document: doc, Version: &v}, nil
	}

	req := engine.ProvisionRequest{
		Environment:   env.Name,
		Region:        env.Region,
		AgentRuntime:  rt.Name,
		VersionID:     v.VersionID,
		ExecutionRole: v.ExecutionRoleARN,
		RemoteID:      v.AgentRuntimeID,
	}
	if req.RemoteID == "" {
		req.RemoteID = rt.AgentRuntimeID
	}
	if uri, err := doc.ContainerURI(env.Name, rt.Name, v.VersionID); err == nil {
		req.ContainerURI = uri
	}

	outcome, err := m.provisioner.Provision(ctx, req)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().
		Str("runtime", model.RuntimePath(env.Name, rt.Name)).
		Str("version", v.VersionID).
		Str("status", string(outcome.Status)).
		Msg("Provisioning outcome received")
	return m.RecordOutcome(ctx, env.Name, rt.Name, v.VersionID, *outcome)
}

// versionOp runs fn on one runtime inside a mutation.
func (m *Manager) versionOp(ctx context.Context, op, envName, runtimeName string, fn func(rt *model.AgentRuntime) (*model.AgentRuntimeVersion, error)) (*MutationResult, error) {
	var version *model.AgentRuntimeVersion
	res, err := m.mutate(ctx, op, envResource(envName, "agent_runtimes."+runtimeName), func(doc *model.Document) error {
		_, rt, err := runtimeIn(doc, envName, runtimeName)
		if err != nil {
			return err
		}
		v, err := fn(rt)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Version = version
	return res, nil
}
