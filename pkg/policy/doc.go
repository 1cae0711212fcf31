// Package policy evaluates Open Policy Agent (Rego) guardrails against the
// agentcore document.
//
// Every policy is a Rego module whose package defines a "deny" set. Members are
// either strings or objects with "message", "path" and "severity" keys. The
// document is passed as input.document in its JSON shape, together with the
// operation being checked:
//
//	package custom.policies.regions
//
//	import rego.v1
//
//	deny contains violation if {
//	    some name, env in input.document.environments
//	    env.region == "us-east-1"
//	    violation := {
//	        "message": sprintf("environment %s must not use us-east-1", [name]),
//	        "path": sprintf("environments.%s.region", [name]),
//	        "severity": "error",
//	    }
//	}
//
// Findings with severity error or critical deny the operation; Result.Err
// turns them into an engine policy error. Info and warning findings are
// returned as warnings.
//
// # Built-in Policies
//
//  1. endpoint-target-status - endpoints must not target DELETING versions; FAILED targets warn
//  2. secret-env-vars - environment variable names that look like secrets
//  3. sync-prefix - the parameter store prefix must be an absolute key path
//  4. pending-default-endpoint - DEFAULT endpoints whose version is still CREATING
//
// The sync engine evaluates policies before every push, and the validate
// command runs them on demand. Extra policies are loaded from the files and
// directories listed in the settings.
package policy
