// Package registry makes long-running evaluation engines discoverable.
//
// Each engine instance registers itself in etcd on startup, maintains
// presence via lease keepalives, and deregisters on graceful shutdown.
// Stale entries disappear automatically when an engine crashes, because
// the lease TTL expires without renewal. External reporting and fleet
// tooling use the registry to find runs in progress.
package registry

import (
	"context"
	"time"
)

// InstanceInfo describes a registered engine instance.
type InstanceInfo struct {
	// InstanceID uniquely identifies this engine process (typically UUID).
	InstanceID string `json:"instance_id"`

	// RunID is the evaluation run the engine is executing.
	RunID string `json:"run_id"`

	// TargetName is the name of the agent under evaluation.
	TargetName string `json:"target_name"`

	// State is the engine's lifecycle state at last update.
	State string `json:"state"`

	// Endpoint is where the engine can be reached, "host:port".
	Endpoint string `json:"endpoint,omitempty"`

	// Metadata carries instance attributes such as the allocator policy
	// or the configured round count.
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is when this instance started.
	StartedAt time.Time `json:"started_at"`
}

// Registry is the instance registration and discovery contract.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register adds this engine instance to the registry. The instance is
	// discoverable immediately and stays registered while its lease is
	// renewed. Re-registering the same InstanceID updates the entry,
	// which is how engines publish state transitions.
	Register(ctx context.Context, info InstanceInfo) error

	// Deregister removes this engine instance. Called on graceful
	// shutdown; deregistering an unknown instance is a no-op.
	Deregister(ctx context.Context, info InstanceInfo) error

	// Discover returns all currently registered engine instances, in
	// arbitrary order.
	Discover(ctx context.Context) ([]InstanceInfo, error)

	// Watch emits the current instance list whenever an engine registers,
	// deregisters, or its lease expires. The initial state is sent
	// immediately; the channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan []InstanceInfo, error)

	// Close releases resources and stops background keepalives.
	Close() error
}

// TLSConfig holds certificate paths for a secured etcd connection.
type TLSConfig struct {
	// Enabled turns on TLS for the etcd connection.
	Enabled bool `yaml:"enabled"`

	// CertFile is the client certificate path.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the client key path.
	KeyFile string `yaml:"key_file"`

	// CAFile is the certificate authority path.
	CAFile string `yaml:"ca_file"`
}

// Config configures the etcd registry client.
type Config struct {
	// Endpoints are the etcd cluster endpoints.
	Endpoints []string `yaml:"endpoints"`

	// Namespace prefixes every registry key. Defaults to "redcell".
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the lease TTL in seconds. Defaults to 30.
	TTL int `yaml:"ttl,omitempty"`

	// TLS secures the connection when enabled.
	TLS *TLSConfig `yaml:"tls,omitempty"`
}
