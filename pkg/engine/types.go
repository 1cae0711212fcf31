package engine

import (
	"fmt"
)

// Severity distinguishes hard violations from warnings.
type Severity string

const (
	// SeverityError fails validation.
	SeverityError Severity = "error"

	// SeverityWarning is reported and logged but never fails validation.
	SeverityWarning Severity = "warning"
)

// Violation is a single validation finding.
type Violation struct {
	// Code is the machine-readable violation code (e.g. RegionMismatch).
	Code string `json:"code"`

	// Path is the dotted document path of the offending field.
	Path string `json:"path"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Severity is error or warning.
	Severity Severity `json:"severity"`
}

// String returns "path: message (code)".
func (v Violation) String() string {
	if v.Path == "" {
		return fmt.Sprintf("%s (%s)", v.Message, v.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Code)
}

// ProvisionStatus is the status reported by a provisioning collaborator.
type ProvisionStatus string

const (
	// ProvisionCreating means the runtime is still being created.
	ProvisionCreating ProvisionStatus = "CREATING"

	// ProvisionReady means the runtime was created successfully.
	ProvisionReady ProvisionStatus = "READY"

	// ProvisionFailed means the runtime could not be created.
	ProvisionFailed ProvisionStatus = "FAILED"
)

// ProvisionRequest describes the version a provisioning collaborator should deploy.
type ProvisionRequest struct {
	Environment   string `json:"environment"`
	Region        string `json:"region"`
	AgentRuntime  string `json:"agent_runtime"`
	VersionID     string `json:"version_id"`
	ContainerURI  string `json:"container_uri"`
	ExecutionRole string `json:"execution_role_arn,omitempty"`

	// RemoteID is the runtime identifier recorded from an earlier outcome.
	// Empty on the first deployment of a runtime.
	RemoteID string `json:"remote_id,omitempty"`
}

// ProvisionOutcome is the only information the version manager needs from provisioning.
type ProvisionOutcome struct {
	// Status is CREATING, READY or FAILED.
	Status ProvisionStatus `json:"status"`

	// RemoteID is the runtime identifier assigned by the managed service, if any.
	RemoteID string `json:"remote_id,omitempty"`

	// RemoteARN is the runtime ARN assigned by the managed service, if any.
	RemoteARN string `json:"remote_arn,omitempty"`

	// FailureReason explains a FAILED status.
	FailureReason string `json:"failure_reason,omitempty"`
}
