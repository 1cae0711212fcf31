package model

import (
	"maps"
	"slices"
	"time"
)

// Clone returns a deep copy of the document. Mutations work on the copy and
// the original stays untouched until the copy is validated and committed.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		CurrentEnvironment: d.CurrentEnvironment,
		GlobalResources:    d.GlobalResources.Clone(),
	}
	if d.Environments != nil {
		out.Environments = make(map[string]*Environment, len(d.Environments))
		for k, env := range d.Environments {
			out.Environments[k] = env.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the environment.
func (e *Environment) Clone() *Environment {
	if e == nil {
		return nil
	}
	out := *e
	out.EnvironmentVariables = maps.Clone(e.EnvironmentVariables)
	if e.Cognito != nil {
		c := *e.Cognito
		c.Extra = maps.Clone(e.Cognito.Extra)
		out.Cognito = &c
	}
	if e.AgentRuntimes != nil {
		out.AgentRuntimes = make(map[string]*AgentRuntime, len(e.AgentRuntimes))
		for k, rt := range e.AgentRuntimes {
			out.AgentRuntimes[k] = rt.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the runtime.
func (r *AgentRuntime) Clone() *AgentRuntime {
	if r == nil {
		return nil
	}
	out := *r
	out.Endpoints = maps.Clone(r.Endpoints)
	out.Tags = maps.Clone(r.Tags)
	if r.Versions != nil {
		out.Versions = make(map[string]AgentRuntimeVersion, len(r.Versions))
		for k, v := range r.Versions {
			v.EnvironmentVariables = maps.Clone(v.EnvironmentVariables)
			out.Versions[k] = v
		}
	}
	return &out
}

// Clone returns a deep copy of the global resources.
func (g GlobalResources) Clone() GlobalResources {
	out := GlobalResources{SyncConfig: g.SyncConfig.Clone()}
	if g.ECRRepositories != nil {
		out.ECRRepositories = make(map[string]*ECRRepository, len(g.ECRRepositories))
		for k, repo := range g.ECRRepositories {
			if repo == nil {
				out.ECRRepositories[k] = nil
				continue
			}
			r := *repo
			r.AvailableTags = slices.Clone(repo.AvailableTags)
			r.LastPush = cloneTime(repo.LastPush)
			r.LastSync = cloneTime(repo.LastSync)
			out.ECRRepositories[k] = &r
		}
	}
	if g.IAMRoles != nil {
		out.IAMRoles = make(map[string]*IAMRoleConfig, len(g.IAMRoles))
		for k, role := range g.IAMRoles {
			if role == nil {
				out.IAMRoles[k] = nil
				continue
			}
			r := *role
			r.LastSync = cloneTime(role.LastSync)
			out.IAMRoles[k] = &r
		}
	}
	return out
}

// Clone returns a copy of the sync settings.
func (s SyncConfig) Clone() SyncConfig {
	out := s
	out.LastFullSync = cloneTime(s.LastFullSync)
	out.LastPush = cloneTime(s.LastPush)
	out.LastPull = cloneTime(s.LastPull)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
