// Package model defines the agentcore configuration document.
//
// A Document holds environments keyed by name, each bound to one region and
// owning its agent runtimes. Runtimes keep an append-only map of immutable
// version records addressed by ordinal ids ("V1", "V2", ...) and an endpoint
// pointer table mapping logical names to version ids. GlobalResources owns the
// shared ECR repositories, IAM roles and the sync settings; environments refer
// to them by name only.
//
// Types in this package carry no behaviour beyond lookups, deep copies and
// serialization. Invariants are checked by package validate and version
// lifecycle rules live in package versions.
package model
