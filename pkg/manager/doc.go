// Package manager is the API the CLI uses to read and change the configuration
// document.
//
// Every mutation runs on a copy of the document under the store's exclusive
// lock and is committed only if the result passes validation; a rejected
// mutation returns an engine error carrying the violations and leaves the file
// untouched. Committed mutations are audited in the journal and, when cloud
// and auto sync are enabled, followed by an auto sync whose failure is logged
// rather than returned.
//
// An empty environment name selects the current environment and an empty
// runtime name selects the environment's default runtime.
package manager
