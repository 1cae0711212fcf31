// Package validate checks agentcore documents.
//
// Validator runs after every load and before every persist. It combines
// go-playground/validator field rules (regions, names, version ids, enums)
// with whole-document checks: regional consistency, unique names, the
// current environment, endpoint targets, the DEFAULT endpoint and latest
// version references. References to shared ECR repositories that are not
// registered are warnings only, because repositories may be provisioned
// after the runtime that uses them.
//
// Schema checks the shape of a document tree against a CUE definition. The
// sync engine runs it on remote payloads before decoding them.
package validate
