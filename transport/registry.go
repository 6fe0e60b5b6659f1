// Package transport implements the agent's control-plane client, object
// store client, and the factory registry that selects between them at
// startup. The concrete clients built here satisfy the Client/Sender/
// ObjectStore interfaces declared in identity, logging, statusreport,
// tank, artifact and ulta structurally: nothing in this package needs
// to import those packages to be usable by them.
package transport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ulta-agent/ulta/errors"
)

// ClientFactory builds the control-plane and object-store clients for
// one transport. A factory name is resolved by Registry; startup wiring
// builds the "grpc" and "s3" factories by those fixed names rather than
// from configuration. Each factory owns the lifetime of what it builds
// and must be able to close it cleanly.
type ClientFactory interface {
	// Name identifies this factory in configuration and logs.
	Name() string
	// Build dials or otherwise prepares the transport and returns a
	// Bundle of everything the agent's other packages consume.
	Build(cfg any) (*Bundle, error)
}

// Bundle is everything a ClientFactory hands back. ControlPlane and
// ObjectStore are typed any because their concrete types already
// structurally satisfy identity.Client, logging.Sender,
// statusreport.Client, tank.UploaderClient, artifact.ObjectStore,
// ulta.LoadtestingClient and ulta.ObjectStore (artifact.LogClient is
// satisfied by grpc.PlainLogAdapter wrapping the control-plane client,
// not by the client itself); wiring code asserts to whichever of those
// interfaces a given collaborator needs instead of this package naming
// them all.
type Bundle struct {
	ControlPlane any
	ObjectStore  any
	Close        func() error
}

// Registry resolves a configured factory name to a ClientFactory. It
// rejects registering two factories under the same name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ClientFactory)}
}

// Register adds factory under its own Name. It is an error to register
// two factories under the same name.
func (r *Registry) Register(factory ClientFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := factory.Name()
	if name == "" {
		return errors.New("transport factory must have a non-empty name")
	}
	if _, exists := r.factories[name]; exists {
		return errors.Newf("transport factory %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Get returns the factory registered under name, if any.
func (r *Registry) Get(name string) (ClientFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// List returns every registered factory name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves name and calls its factory, returning a descriptive
// error listing what is available when name is unknown.
func (r *Registry) Build(name string, cfg any) (*Bundle, error) {
	factory, ok := r.Get(name)
	if !ok {
		return nil, errors.Newf("unknown transport %q, available: %s", name, fmt.Sprint(r.List()))
	}
	return factory.Build(cfg)
}
