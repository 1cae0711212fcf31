// Package engine provides the shared contracts of the agentcore configuration system.
//
// # Overview
//
// agentcore keeps an environment-scoped, versioned deployment configuration in a single
// local document and mirrors it to a remote key. The work is split across packages:
//
//  1. model - the document and its entities (environments, agent runtimes, versions)
//  2. validate - whole-document invariant checks run before every commit
//  3. versions - immutable version history and the endpoint pointer table
//  4. localstore - locked, atomic persistence of the local document
//  5. drift - normalized structural diff between two documents
//  6. syncer - status, push and pull against a remote mirror
//
// # Contracts
//
// This package holds what those packages share:
//
//   - Mirror: the remote key/value adapter (get, put, not found)
//   - ProvisionOutcome: the status record reported by provisioning collaborators
//   - Violation: one validation finding with a code, a dotted path and a severity
//   - EngineError: the structured error returned by every operation
//
// # Error Classification
//
// Every error carries a kind:
//
//   - validation: the document or a mutation breaks an invariant
//   - version_state: InvalidTransition or VersionInUse
//   - sync_conflict: the remote holds changes unknown locally
//   - invalid_remote_state: a pulled document failed validation
//   - local_store_busy: the local lock was not acquired in time
//   - adapter: the remote backend failed
//
// Errors are never retried inside the engine.
package engine
