package store

import "github.com/kilianp07/lineauction/core/factory"

var registry = factory.NewRegistry[Store]()

// Register adds a store backend factory identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New creates the store backend selected by cfg.Type.
func New(cfg factory.ModuleConfig) (Store, error) {
	return registry.Create(cfg)
}

// Backends lists the registered store types.
func Backends() []string { return registry.Names() }
