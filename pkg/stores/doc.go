// Package stores provides the local journal of agentcore: a SQLite database
// recording every sync run and an audit trail of committed document
// mutations. The schema is managed with embedded migrations.
package stores
