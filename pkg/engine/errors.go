package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an error for callers deciding how to recover.
type ErrorKind string

const (
	// KindValidation indicates the document (or a requested mutation) breaks an invariant.
	// Always recoverable by correcting input; the document is never committed.
	KindValidation ErrorKind = "validation"

	// KindVersionState indicates a lifecycle-ordering or referential misuse of versions.
	KindVersionState ErrorKind = "version_state"

	// KindSyncConflict indicates the remote copy holds changes unknown locally.
	KindSyncConflict ErrorKind = "sync_conflict"

	// KindInvalidRemoteState indicates the fetched remote document failed validation.
	KindInvalidRemoteState ErrorKind = "invalid_remote_state"

	// KindLocalStoreBusy indicates the local document lock could not be acquired in time.
	KindLocalStoreBusy ErrorKind = "local_store_busy"

	// KindAdapter indicates a storage or network failure in a remote mirror backend.
	KindAdapter ErrorKind = "adapter"

	// KindNotFound indicates a referenced entity does not exist.
	KindNotFound ErrorKind = "not_found"

	// KindPolicy indicates a guardrail policy denied the operation.
	KindPolicy ErrorKind = "policy"

	// KindPrecondition indicates the operation is not allowed in the current configuration,
	// for example syncing while cloud sync is disabled.
	KindPrecondition ErrorKind = "precondition"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the dotted path or name of the entity that caused the error, if applicable.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Violations lists every hard validation failure when Kind is validation
	// or invalid_remote_state.
	Violations []Violation `json:"violations,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	switch {
	case e.Resource != "" && e.Operation != "":
		fmt.Fprintf(&b, " (resource=%s, operation=%s)", e.Resource, e.Operation)
	case e.Resource != "":
		fmt.Fprintf(&b, " (resource=%s)", e.Resource)
	case e.Operation != "":
		fmt.Fprintf(&b, " (operation=%s)", e.Operation)
	}
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.String())
		}
		fmt.Fprintf(&b, ": %s", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
// A target without a code matches every error of the same kind.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// HasCode reports whether the error or any of its violations carries code.
func (e *EngineError) HasCode(code string) bool {
	if e.Code == code {
		return true
	}
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// NewValidationError creates a validation error carrying the given violations.
func NewValidationError(message string, violations []Violation) *EngineError {
	code := ErrCodeInvalidField
	if len(violations) > 0 {
		code = violations[0].Code
	}
	return &EngineError{
		Kind:       KindValidation,
		Message:    message,
		Code:       code,
		Violations: violations,
	}
}

// NewVersionStateError creates a version lifecycle error.
func NewVersionStateError(code, message string) *EngineError {
	return &EngineError{
		Kind:    KindVersionState,
		Code:    code,
		Message: message,
	}
}

// NewSyncConflictError creates a sync conflict error.
func NewSyncConflictError(message string) *EngineError {
	return &EngineError{
		Kind:    KindSyncConflict,
		Code:    ErrCodeSyncConflict,
		Message: message,
	}
}

// NewInvalidRemoteStateError creates an error for a remote document that failed validation.
func NewInvalidRemoteStateError(message string, violations []Violation, err error) *EngineError {
	return &EngineError{
		Kind:       KindInvalidRemoteState,
		Code:       ErrCodeInvalidRemoteState,
		Message:    message,
		Violations: violations,
		Err:        err,
	}
}

// NewLocalStoreBusyError creates a lock contention error.
func NewLocalStoreBusyError(path string, err error) *EngineError {
	return &EngineError{
		Kind:     KindLocalStoreBusy,
		Code:     ErrCodeLocalStoreBusy,
		Message:  "local configuration is locked by another process",
		Resource: path,
		Err:      err,
	}
}

// NewAdapterError creates a remote backend error.
func NewAdapterError(message string, err error) *EngineError {
	return &EngineError{
		Kind:    KindAdapter,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a not found error for the named resource.
func NewNotFoundError(resource, message string) *EngineError {
	return &EngineError{
		Kind:     KindNotFound,
		Code:     ErrCodeNotFound,
		Message:  message,
		Resource: resource,
	}
}

// NewPolicyError creates a policy denial error.
func NewPolicyError(message string, violations []Violation) *EngineError {
	return &EngineError{
		Kind:       KindPolicy,
		Code:       ErrCodePolicyDenied,
		Message:    message,
		Violations: violations,
	}
}

// NewPreconditionError creates a precondition error.
func NewPreconditionError(code, message string) *EngineError {
	return &EngineError{
		Kind:    KindPrecondition,
		Code:    code,
		Message: message,
	}
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func kindOf(err error) (ErrorKind, bool) {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindValidation
}

// IsVersionState returns true if the error is a version lifecycle error.
func IsVersionState(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindVersionState
}

// IsSyncConflict returns true if the error is a sync conflict.
func IsSyncConflict(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindSyncConflict
}

// IsInvalidRemoteState returns true if the error reports an invalid remote document.
func IsInvalidRemoteState(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidRemoteState
}

// IsLocalStoreBusy returns true if the error reports lock contention.
func IsLocalStoreBusy(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindLocalStoreBusy
}

// IsAdapter returns true if the error came from a remote backend.
func IsAdapter(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAdapter
}

// IsNotFound returns true if the error reports a missing entity or remote key.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrRemoteNotFound) {
		return true
	}
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsPolicy returns true if the error is a policy denial.
func IsPolicy(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPolicy
}

// HasCode returns true if err is an EngineError whose code, or one of whose
// violations, equals code.
func HasCode(err error, code string) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.HasCode(code)
	}
	return false
}

// ErrRemoteNotFound is returned by mirrors when the requested key does not exist.
var ErrRemoteNotFound = &EngineError{
	Kind:    KindNotFound,
	Code:    ErrCodeRemoteNotFound,
	Message: "remote document not found",
}

// Error codes.
const (
	ErrCodeRegionMismatch            = "RegionMismatch"
	ErrCodeDuplicateName             = "DuplicateName"
	ErrCodeNameMismatch              = "NameMismatch"
	ErrCodeDanglingReference         = "DanglingReference"
	ErrCodeInvalidEndpointTarget     = "InvalidEndpointTarget"
	ErrCodeUnknownCurrentEnvironment = "UnknownCurrentEnvironment"
	ErrCodeMissingDefaultEndpoint    = "MissingDefaultEndpoint"
	ErrCodeInvalidVersionID          = "InvalidVersionID"
	ErrCodeInvalidField              = "InvalidField"
	ErrCodeSchemaViolation           = "SchemaViolation"
	ErrCodeInvalidTransition         = "InvalidTransition"
	ErrCodeVersionInUse              = "VersionInUse"
	ErrCodeSyncConflict              = "SyncConflict"
	ErrCodeInvalidRemoteState        = "InvalidRemoteState"
	ErrCodeLocalStoreBusy            = "LocalStoreBusy"
	ErrCodeRemoteNotFound            = "RemoteNotFound"
	ErrCodeSyncDisabled              = "SyncDisabled"
	ErrCodePolicyDenied              = "PolicyDenied"
	ErrCodeNotFound                  = "NotFound"
	ErrCodeAlreadyExists             = "AlreadyExists"
	ErrCodeAccountMismatch           = "AccountMismatch"
	ErrCodePermissionDenied          = "PERMISSION_DENIED"
	ErrCodeThrottled                 = "THROTTLED"
	ErrCodeNetwork                   = "NETWORK"
)
