package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// NewDocument returns an empty document with default sync settings.
func NewDocument() *Document {
	return &Document{
		Environments: map[string]*Environment{},
		GlobalResources: GlobalResources{
			ECRRepositories: map[string]*ECRRepository{},
			IAMRoles:        map[string]*IAMRoleConfig{},
			SyncConfig:      DefaultSyncConfig(),
		},
	}
}

// DefaultSyncConfig returns sync settings with cloud sync disabled.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		ParameterStorePrefix: DefaultParameterPrefix,
		SyncIntervalMinutes:  DefaultSyncIntervalMinutes,
	}
}

// EnsureMaps replaces nil maps with empty ones so mutations can assign into them.
// Decoding a document with empty sections leaves nil maps behind.
func (d *Document) EnsureMaps() {
	if d.Environments == nil {
		d.Environments = map[string]*Environment{}
	}
	if d.GlobalResources.ECRRepositories == nil {
		d.GlobalResources.ECRRepositories = map[string]*ECRRepository{}
	}
	if d.GlobalResources.IAMRoles == nil {
		d.GlobalResources.IAMRoles = map[string]*IAMRoleConfig{}
	}
	for _, env := range d.Environments {
		if env == nil {
			continue
		}
		if env.AgentRuntimes == nil {
			env.AgentRuntimes = map[string]*AgentRuntime{}
		}
		for _, rt := range env.AgentRuntimes {
			if rt == nil {
				continue
			}
			if rt.Versions == nil {
				rt.Versions = map[string]AgentRuntimeVersion{}
			}
			if rt.Endpoints == nil {
				rt.Endpoints = map[string]string{}
			}
		}
	}
}

// Environment returns the named environment.
func (d *Document) Environment(name string) (*Environment, error) {
	env, ok := d.Environments[name]
	if !ok || env == nil {
		return nil, engine.NewNotFoundError("environments."+name,
			fmt.Sprintf("environment %q does not exist", name))
	}
	return env, nil
}

// CurrentEnv returns the current environment.
func (d *Document) CurrentEnv() (*Environment, error) {
	if d.CurrentEnvironment == "" {
		return nil, engine.NewNotFoundError("current_environment", "no current environment is set")
	}
	return d.Environment(d.CurrentEnvironment)
}

// EnvironmentNames returns the environment names in sorted order.
func (d *Document) EnvironmentNames() []string {
	return sortedKeys(d.Environments)
}

// Runtime returns the named runtime of the named environment.
func (d *Document) Runtime(envName, runtimeName string) (*AgentRuntime, error) {
	env, err := d.Environment(envName)
	if err != nil {
		return nil, err
	}
	return env.Runtime(runtimeName)
}

// ECRRepository returns the named shared repository.
func (d *Document) ECRRepository(name string) (*ECRRepository, error) {
	repo, ok := d.GlobalResources.ECRRepositories[name]
	if !ok || repo == nil {
		return nil, engine.NewNotFoundError("global_resources.ecr_repositories."+name,
			fmt.Sprintf("ECR repository %q does not exist", name))
	}
	return repo, nil
}

// ContainerURI resolves the image URI of a version: repository URI plus image tag.
func (d *Document) ContainerURI(envName, runtimeName, versionID string) (string, error) {
	rt, err := d.Runtime(envName, runtimeName)
	if err != nil {
		return "", err
	}
	v, err := rt.Version(versionID)
	if err != nil {
		return "", err
	}
	repo, err := d.ECRRepository(v.ECRRepositoryName)
	if err != nil {
		return "", err
	}
	if repo.RepositoryURI == "" {
		return "", engine.NewNotFoundError("global_resources.ecr_repositories."+repo.Name+".repository_uri",
			fmt.Sprintf("ECR repository %q has no repository URI yet", repo.Name))
	}
	return repo.ImageURI(v.ImageTag), nil
}

// Runtime returns the named runtime.
func (e *Environment) Runtime(name string) (*AgentRuntime, error) {
	rt, ok := e.AgentRuntimes[name]
	if !ok || rt == nil {
		return nil, engine.NewNotFoundError(RuntimePath(e.Name, name),
			fmt.Sprintf("agent runtime %q does not exist in environment %q", name, e.Name))
	}
	return rt, nil
}

// RuntimeNames returns the runtime names in sorted order.
func (e *Environment) RuntimeNames() []string {
	return sortedKeys(e.AgentRuntimes)
}

// Version returns the version record with the given id.
func (r *AgentRuntime) Version(id string) (AgentRuntimeVersion, error) {
	v, ok := r.Versions[id]
	if !ok {
		return AgentRuntimeVersion{}, engine.NewNotFoundError(id,
			fmt.Sprintf("version %q does not exist for agent runtime %q", id, r.Name))
	}
	return v, nil
}

// VersionIDs returns the version ids ordered by ordinal.
func (r *AgentRuntime) VersionIDs() []string {
	ids := make([]string, 0, len(r.Versions))
	for id := range r.Versions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		oi, _ := ParseVersionID(ids[i])
		oj, _ := ParseVersionID(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// EndpointsFor returns the endpoint names targeting the given version, sorted.
func (r *AgentRuntime) EndpointsFor(id string) []string {
	var names []string
	for name, target := range r.Endpoints {
		if target == id {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ImageURI returns "<repository_uri>:<tag>".
func (r *ECRRepository) ImageURI(tag string) string {
	return r.RepositoryURI + ":" + tag
}

// RegistryURL returns the registry host part of the repository URI.
func (r *ECRRepository) RegistryURL() string {
	host, _, _ := strings.Cut(r.RepositoryURI, "/")
	return host
}

// RuntimePath returns the dotted document path of a runtime.
func RuntimePath(envName, runtimeName string) string {
	return "environments." + envName + ".agent_runtimes." + runtimeName
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
