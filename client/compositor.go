package wl

// Compositor creates surfaces.
type Compositor struct {
	proxy
	version uint32
}

func IsCompositor(i Interface) bool {
	return i.Is(CompositorInterface, 1)
}

// BindCompositor binds the wl_compositor global with the given name.
func BindCompositor(registry *Registry, name, version uint32) *Compositor {
	compositor := Compositor{version: clampVersion(version, CompositorVersion)}
	registry.Bind(name, CompositorInterface, compositor.version, &compositor)

	return &compositor
}

// Version returns the bound version of the interface.
func (c *Compositor) Version() uint32 {
	return c.version
}

func (c *Compositor) CreateSurface() *Surface {
	s := Surface{version: c.version}
	c.display.create(c, &s)

	msg := newRequest(c, compositorCreateSurface, s.id)
	msg.WriteUint(s.id)
	c.display.Enqueue(msg)

	return &s
}
