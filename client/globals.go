package wl

// Globals binds the globals that a simple shell client needs as they
// are announced. Interfaces that it doesn't know about are ignored.
//
// Fields are nil until the corresponding global has been announced and
// again after it is removed. A round trip after BindGlobals is usually
// enough for all of them to be set, and a second one for Formats to be
// complete.
type Globals struct {
	Display    *Display
	Registry   *Registry
	Compositor *Compositor
	Shm        *Shm
	Shell      *Shell

	// Formats is the set of pixel formats that the compositor has
	// announced through Shm.
	Formats FormatSet

	names map[uint32]string
}

// BindGlobals fetches display's registry and starts tracking its
// globals. It replaces the registry's listener. It doesn't block.
func BindGlobals(display *Display) *Globals {
	g := Globals{
		Display:  display,
		Registry: display.GetRegistry(),
		names:    make(map[uint32]string),
	}
	g.Registry.Listener = RegistryListener{
		Global:       g.global,
		GlobalRemove: g.globalRemove,
	}

	return &g
}

func (g *Globals) global(name uint32, inter string, version uint32) {
	switch inter {
	case CompositorInterface:
		if g.Compositor == nil {
			g.Compositor = BindCompositor(g.Registry, name, version)
			g.names[name] = inter
		}

	case ShmInterface:
		if g.Shm == nil {
			g.Shm = BindShm(g.Registry, name, version)
			g.Shm.Listener.Format = g.Formats.Add
			g.names[name] = inter
		}

	case ShellInterface:
		if g.Shell == nil {
			g.Shell = BindShell(g.Registry, name, version)
			g.names[name] = inter
		}
	}
}

func (g *Globals) globalRemove(name uint32) {
	inter, ok := g.names[name]
	if !ok {
		return
	}
	delete(g.names, name)

	switch inter {
	case CompositorInterface:
		g.Compositor = nil
	case ShmInterface:
		g.Shm = nil
		g.Formats = 0
	case ShellInterface:
		g.Shell = nil
	}
}
