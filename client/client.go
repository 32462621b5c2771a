// Package wl implements the client side of the core Wayland protocol:
// connecting to a compositor, binding its globals, sharing pixel
// buffers with it through shared memory, and presenting them on
// surfaces.
//
// A Display and every object obtained through it belong to a single
// goroutine. Requests are queued and written when the Display is
// flushed, which happens automatically before it blocks waiting for
// events and after every event is dispatched. Events are delivered
// synchronously to the Listener of the object they are addressed to
// from inside Dispatch and RoundTrip.
package wl

import (
	"deedles.dev/wlcore/internal/objstore"
	"deedles.dev/wlcore/wire"
)

// Interface describes a global announced by the compositor.
type Interface struct {
	Name    string
	Version uint32
}

// Is reports whether i is the named interface at or above the given
// version.
func (i Interface) Is(name string, version uint32) bool {
	return (i.Name == name) && (i.Version >= version)
}

// object is implemented by every protocol object type in this package.
type object interface {
	wire.Object
	base() *proxy
}

// proxy is the client-side state shared by all protocol objects.
type proxy struct {
	id      uint32
	handle  objstore.Handle
	display *Display
}

func (p *proxy) base() *proxy {
	return p
}

// ID returns the object's protocol ID.
func (p *proxy) ID() uint32 {
	return p.id
}

func (p *proxy) SetID(id uint32) {
	p.id = id
}

func (p *proxy) Delete() {}

// Valid reports whether the object is still alive. Objects become
// invalid when they are destroyed, when the global they were bound
// from is removed, and when their Display is closed.
func (p *proxy) Valid() bool {
	return (p.display != nil) && p.display.objects.Valid(p.handle)
}

func clampVersion(version, supported uint32) uint32 {
	return max(1, min(version, supported))
}
