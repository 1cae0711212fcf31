// Package localstore persists the agentcore document to a single YAML file.
//
// Reads take a shared lock and every read-modify-write cycle takes an
// exclusive lock on a sibling ".lock" file (gofrs/flock). Acquisition waits
// at most the configured timeout and then fails with a local_store_busy
// error instead of blocking. Mutations run on a deep copy of the document,
// are validated as a whole and are written with a temp file and a rename, so
// a failed mutation never leaves a partial or invalid file behind.
package localstore
