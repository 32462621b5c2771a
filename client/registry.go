package wl

import (
	"deedles.dev/wlcore/internal/objstore"
	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/maps"
)

// Registry is the table of globals announced by the compositor.
type Registry struct {
	proxy
	Listener RegistryListener

	globals map[uint32]Interface
	bound   map[uint32][]objstore.Handle
}

// Globals returns a copy of the current global table, keyed by global
// name.
func (registry *Registry) Globals() map[uint32]Interface {
	return maps.Clone(registry.globals)
}

// Bind binds the global with the given name to obj, which must be a
// new object of the given interface. It doesn't wait for the
// compositor to respond.
func (registry *Registry) Bind(name uint32, inter string, version uint32, obj object) {
	registry.display.create(registry, obj)
	registry.bound[name] = append(registry.bound[name], obj.base().handle)

	id := wire.NewID{Interface: inter, Version: version, ID: obj.ID()}
	msg := newRequest(registry, registryBind, name, inter, version, id.ID)
	msg.WriteUint(name)
	msg.WriteNewID(id)
	registry.display.Enqueue(msg)
}

func (registry *Registry) global(name uint32, inter string, version uint32) {
	registry.globals[name] = Interface{Name: inter, Version: version}
	if registry.Listener.Global != nil {
		registry.Listener.Global(name, inter, version)
	}
}

// globalRemove drops the global from the table and invalidates every
// object bound from it.
func (registry *Registry) globalRemove(name uint32) {
	delete(registry.globals, name)
	for _, h := range registry.bound[name] {
		if registry.display.objects.Valid(h) {
			registry.display.objects.Invalidate(h.ID)
		}
	}
	delete(registry.bound, name)

	if registry.Listener.GlobalRemove != nil {
		registry.Listener.GlobalRemove(name)
	}
}
