package stores

import (
	"context"
	"time"
)

// SyncRun is the journal record of one push, pull or status run.
type SyncRun struct {
	ID         string   `json:"id"`
	Operation  string   `json:"operation"`   // push, pull, status, auto
	FinalState string   `json:"final_state"` // DONE, FAILED, NO_DRIFT, DRIFT_DETECTED
	States     []string `json:"states"`      // every state visited, in order
	Backend    string   `json:"backend"`
	RemoteKey  string   `json:"remote_key"`

	// Drift counts by kind.
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`

	Forced      bool      `json:"forced"`
	Error       *string   `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration returns how long the run took.
func (r *SyncRun) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// AuditEntry represents an audit trail entry for a committed mutation.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`             // e.g., "AddEnvironment", "CreateVersion", "sync.pull"
	Actor     string    `json:"actor"`              // OS user running the command
	Resource  *string   `json:"resource,omitempty"` // dotted document path
	Details   *string   `json:"details,omitempty"`  // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// Journal records sync runs and audit entries.
type Journal interface {
	RecordSyncRun(ctx context.Context, run *SyncRun) error
	GetSyncRun(ctx context.Context, id string) (*SyncRun, error)
	ListSyncRuns(ctx context.Context, operation *string, limit, offset int) ([]*SyncRun, error)
	PruneSyncRuns(ctx context.Context, keep int) (int64, error)

	CreateAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error)

	Close() error
}
