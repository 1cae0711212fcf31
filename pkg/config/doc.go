// Package config loads the agentcore CLI settings.
//
// Settings live in ~/.agentcore/settings.yaml (or the file given with
// --settings). They select the remote backend, the document and journal
// paths, policy files and telemetry; they are never mirrored remotely.
//
// Loading happens in four steps:
//
//  1. DefaultSettings provides every value.
//  2. The YAML file is checked against the CUE #Settings schema and decoded
//     with unknown fields rejected.
//  3. AGENTCORE_* environment variables override individual fields.
//  4. Validate applies go-playground/validator rules and cross-field checks.
//
// Example settings file:
//
//	document_path: .agentcore/config.yaml
//	lock_timeout: 5s
//	remote:
//	  backend: s3
//	  s3:
//	    bucket: team-agentcore
//	    endpoint: http://localhost:9000
//	    use_path_style: true
//	  encryption:
//	    recipients: [age1...]
//	    identity_file: ~/.agentcore/age.key
//	journal:
//	  enabled: true
//	  path: .agentcore/journal.db
//	telemetry:
//	  logging:
//	    level: debug
package config
