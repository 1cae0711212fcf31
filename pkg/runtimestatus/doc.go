// Package runtimestatus reports the provisioning status of agent runtime
// versions from the Bedrock AgentCore control plane.
//
// Checker implements engine.Provisioner without creating anything: it reads
// the runtime version that an external deployment created and translates the
// control-plane status into a ProvisionOutcome the version manager can apply.
package runtimestatus
