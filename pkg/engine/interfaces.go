package engine

import (
	"context"
)

// Mirror is the remote key/value store holding the serialized document.
// Implementations provide single-key atomic get and put and nothing more.
type Mirror interface {
	// Get returns the bytes stored under key, or an error matching
	// ErrRemoteNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Provisioner creates the managed runtime for a version. It is implemented by the
// provisioning layer outside this module; the engine only consumes its outcome.
type Provisioner interface {
	// Provision starts or checks the deployment of a version and reports its status.
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionOutcome, error)
}
