package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		endpointTargetPolicy(),
		secretEnvVarsPolicy(),
		syncPrefixPolicy(),
		pendingDefaultPolicy(),
	}
}

// endpointTargetPolicy rejects endpoints that route traffic to unusable versions.
func endpointTargetPolicy() Policy {
	return Policy{
		Name:        "endpoint-target-status",
		Description: "Endpoints must not target DELETING versions and should not target FAILED ones",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"endpoints", "versions"},
		Rego: `package agentcore.policies.endpoints

import rego.v1

deny contains violation if {
	some env_name, env in input.document.environments
	some rt_name, rt in env.agent_runtimes
	some endpoint, version_id in rt.endpoints
	rt.versions[version_id].status == "DELETING"
	violation := {
		"message": sprintf("endpoint %s of %s targets version %s which is being deleted", [endpoint, rt_name, version_id]),
		"path": sprintf("environments.%s.agent_runtimes.%s.endpoints.%s", [env_name, rt_name, endpoint]),
		"severity": "error",
	}
}

deny contains violation if {
	some env_name, env in input.document.environments
	some rt_name, rt in env.agent_runtimes
	some endpoint, version_id in rt.endpoints
	rt.versions[version_id].status == "FAILED"
	violation := {
		"message": sprintf("endpoint %s of %s targets failed version %s", [endpoint, rt_name, version_id]),
		"path": sprintf("environments.%s.agent_runtimes.%s.endpoints.%s", [env_name, rt_name, endpoint]),
		"severity": "warning",
	}
}
`,
	}
}

// secretEnvVarsPolicy flags environment variables whose names suggest a secret.
func secretEnvVarsPolicy() Policy {
	return Policy{
		Name:        "secret-env-vars",
		Description: "Environment variable names that look like secrets should not be stored in the document",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"secrets"},
		Rego: `package agentcore.policies.secrets

import rego.v1

secret_pattern := ` + "`(?i)(secret|password|passwd|token|api_?key|private_?key|credential)`" + `

deny contains violation if {
	some env_name, env in input.document.environments
	some name, _ in env.environment_variables
	regex.match(secret_pattern, name)
	violation := {
		"message": sprintf("environment variable %s looks like a secret", [name]),
		"path": sprintf("environments.%s.environment_variables.%s", [env_name, name]),
	}
}

deny contains violation if {
	some env_name, env in input.document.environments
	some rt_name, rt in env.agent_runtimes
	some version_id, version in rt.versions
	some name, _ in version.environment_variables
	regex.match(secret_pattern, name)
	violation := {
		"message": sprintf("environment variable %s of %s %s looks like a secret", [name, rt_name, version_id]),
		"path": sprintf("environments.%s.agent_runtimes.%s.versions.%s.environment_variables.%s", [env_name, rt_name, version_id, name]),
	}
}
`,
	}
}

// syncPrefixPolicy guards the remote key the document is mirrored under.
func syncPrefixPolicy() Policy {
	return Policy{
		Name:        "sync-prefix",
		Description: "The parameter store prefix must be an absolute key path without whitespace",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"sync"},
		Rego: `package agentcore.policies.sync

import rego.v1

prefix := input.document.global_resources.sync_config.parameter_store_prefix

deny contains violation if {
	not startswith(prefix, "/")
	violation := {
		"message": sprintf("parameter store prefix %q must start with /", [prefix]),
		"path": "global_resources.sync_config.parameter_store_prefix",
	}
}

deny contains violation if {
	regex.match(` + "`\\s`" + `, prefix)
	violation := {
		"message": sprintf("parameter store prefix %q must not contain whitespace", [prefix]),
		"path": "global_resources.sync_config.parameter_store_prefix",
	}
}
`,
	}
}

// pendingDefaultPolicy notes DEFAULT endpoints that still point at a version being created.
func pendingDefaultPolicy() Policy {
	return Policy{
		Name:        "pending-default-endpoint",
		Description: "Reports DEFAULT endpoints whose version is still CREATING",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"endpoints"},
		Rego: `package agentcore.policies.pending

import rego.v1

deny contains violation if {
	some env_name, env in input.document.environments
	some rt_name, rt in env.agent_runtimes
	version_id := rt.endpoints.DEFAULT
	rt.versions[version_id].status == "CREATING"
	violation := {
		"message": sprintf("DEFAULT endpoint of %s targets %s which is still being created", [rt_name, version_id]),
		"path": sprintf("environments.%s.agent_runtimes.%s.endpoints.DEFAULT", [env_name, rt_name]),
	}
}
`,
	}
}
