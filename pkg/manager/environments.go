package manager

import (
	"context"
	"fmt"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// AddEnvironment creates an environment. The first environment becomes current.
func (m *Manager) AddEnvironment(ctx context.Context, name, region string) (*MutationResult, error) {
	return m.mutate(ctx, "AddEnvironment", "environments."+name, func(doc *model.Document) error {
		if _, ok := doc.Environments[name]; ok {
			return alreadyExists("environments."+name, "environment %q already exists", name)
		}
		now := m.timestamp()
		doc.Environments[name] = &model.Environment{
			Name:          name,
			Region:        region,
			AgentRuntimes: map[string]*model.AgentRuntime{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if doc.CurrentEnvironment == "" {
			doc.CurrentEnvironment = name
		}
		return nil
	})
}

// RemoveEnvironment deletes an environment and everything it owns. Removing
// the current environment makes the first remaining one (by name) current.
func (m *Manager) RemoveEnvironment(ctx context.Context, name string) (*MutationResult, error) {
	return m.mutate(ctx, "RemoveEnvironment", "environments."+name, func(doc *model.Document) error {
		if _, err := doc.Environment(name); err != nil {
			return err
		}
		delete(doc.Environments, name)
		if doc.CurrentEnvironment == name {
			doc.CurrentEnvironment = ""
			if names := doc.EnvironmentNames(); len(names) > 0 {
				doc.CurrentEnvironment = names[0]
			}
		}
		return nil
	})
}

// SetCurrentEnvironment switches the current environment.
func (m *Manager) SetCurrentEnvironment(ctx context.Context, name string) (*MutationResult, error) {
	return m.mutate(ctx, "SetCurrentEnvironment", "current_environment", func(doc *model.Document) error {
		if _, err := doc.Environment(name); err != nil {
			return err
		}
		doc.CurrentEnvironment = name
		return nil
	})
}

// SetEnvVar sets an environment variable on the named (or current) environment.
func (m *Manager) SetEnvVar(ctx context.Context, envName, key, value string) (*MutationResult, error) {
	return m.mutate(ctx, "SetEnvVar", envResource(envName, "environment_variables."+key), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		if env.EnvironmentVariables == nil {
			env.EnvironmentVariables = map[string]string{}
		}
		env.EnvironmentVariables[key] = value
		env.UpdatedAt = m.timestamp()
		return nil
	})
}

// UnsetEnvVar removes an environment variable.
func (m *Manager) UnsetEnvVar(ctx context.Context, envName, key string) (*MutationResult, error) {
	return m.mutate(ctx, "UnsetEnvVar", envResource(envName, "environment_variables."+key), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		if _, ok := env.EnvironmentVariables[key]; !ok {
			return engine.NewNotFoundError("environments."+env.Name+".environment_variables."+key,
				fmt.Sprintf("environment variable %q is not set in %q", key, env.Name))
		}
		delete(env.EnvironmentVariables, key)
		env.UpdatedAt = m.timestamp()
		return nil
	})
}

// SetCognito replaces the authentication block. A nil config clears it.
func (m *Manager) SetCognito(ctx context.Context, envName string, cfg *model.CognitoConfig) (*MutationResult, error) {
	return m.mutate(ctx, "SetCognito", envResource(envName, "cognito"), func(doc *model.Document) error {
		env, err := resolveEnv(doc, envName)
		if err != nil {
			return err
		}
		if cfg != nil {
			c := *cfg
			env.Cognito = &c
		} else {
			env.Cognito = nil
		}
		env.UpdatedAt = m.timestamp()
		return nil
	})
}

func envResource(envName, rest string) string {
	if envName == "" {
		envName = "<current>"
	}
	return "environments." + envName + "." + rest
}
