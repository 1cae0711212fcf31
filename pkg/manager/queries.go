package manager

import (
	"context"

	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/validate"
	"github.com/openfroyo/agentcore/pkg/versions"
)

// GetDocument returns the document and its validation result. An invalid
// document is returned together with the validation error.
func (m *Manager) GetDocument(ctx context.Context) (*model.Document, *validate.Result, error) {
	return m.store.Load(ctx)
}

// GetEnvironment returns the named environment, or the current one when name is empty.
func (m *Manager) GetEnvironment(ctx context.Context, name string) (*model.Environment, error) {
	doc, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return resolveEnv(doc, name)
}

// ListAgentRuntimes returns the runtimes of an environment sorted by name.
func (m *Manager) ListAgentRuntimes(ctx context.Context, envName string) ([]*model.AgentRuntime, error) {
	env, err := m.GetEnvironment(ctx, envName)
	if err != nil {
		return nil, err
	}
	names := env.RuntimeNames()
	out := make([]*model.AgentRuntime, 0, len(names))
	for _, name := range names {
		out = append(out, env.AgentRuntimes[name])
	}
	return out, nil
}

// GetAgentRuntime returns a runtime. An empty name selects the environment default.
func (m *Manager) GetAgentRuntime(ctx context.Context, envName, name string) (*model.AgentRuntime, error) {
	doc, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	_, rt, err := runtimeIn(doc, envName, name)
	return rt, err
}

// ResolveEndpoint returns the version an endpoint targets. An empty endpoint
// resolves DEFAULT.
func (m *Manager) ResolveEndpoint(ctx context.Context, envName, runtimeName, endpoint string) (model.AgentRuntimeVersion, error) {
	rt, err := m.GetAgentRuntime(ctx, envName, runtimeName)
	if err != nil {
		return model.AgentRuntimeVersion{}, err
	}
	return versions.ResolveEndpoint(rt, endpoint)
}

// ContainerURI returns the image URI deployed behind an endpoint.
func (m *Manager) ContainerURI(ctx context.Context, envName, runtimeName, endpoint string) (string, error) {
	doc, _, err := m.store.Load(ctx)
	if err != nil {
		return "", err
	}
	env, rt, err := runtimeIn(doc, envName, runtimeName)
	if err != nil {
		return "", err
	}
	v, err := versions.ResolveEndpoint(rt, endpoint)
	if err != nil {
		return "", err
	}
	return doc.ContainerURI(env.Name, rt.Name, v.VersionID)
}
