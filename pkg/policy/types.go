package policy

import (
	"time"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that block the operation.
	SeverityError Severity = "error"

	// SeverityCritical is for findings that block the operation and need attention.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a finding of this severity denies the operation.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The package must define a "deny" set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not carry one.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from; empty for built-ins.
	Source string `json:"source,omitempty"`
}

// Input is the document handed to every policy as input.
type Input struct {
	// Document is the generic tree of the agentcore document.
	Document map[string]interface{} `json:"document"`

	// Operation is the operation being checked (push, validate).
	Operation string `json:"operation"`

	// Environment is the current environment of the document.
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}

// Violation is a single policy finding.
type Violation struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// Path is the dotted document path of the offending value.
	Path string `json:"path,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed is false when any violation has a blocking severity.
	Allowed bool `json:"allowed"`

	// Violations lists blocking findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists findings that do not block the operation.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Err returns a policy error carrying every blocking violation, or nil when allowed.
func (r *Result) Err() error {
	if r == nil || r.Allowed {
		return nil
	}
	return engine.NewPolicyError("policy guardrails denied the operation", toEngine(r.Violations, engine.SeverityError))
}

// WarningViolations returns the non-blocking findings as engine violations.
func (r *Result) WarningViolations() []engine.Violation {
	if r == nil {
		return nil
	}
	return toEngine(r.Warnings, engine.SeverityWarning)
}

func toEngine(in []Violation, sev engine.Severity) []engine.Violation {
	out := make([]engine.Violation, 0, len(in))
	for _, v := range in {
		out = append(out, engine.Violation{
			Code:     engine.ErrCodePolicyDenied + ":" + v.Policy,
			Path:     v.Path,
			Message:  v.Message,
			Severity: sev,
		})
	}
	return out
}
