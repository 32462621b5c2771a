package wl

// Shell assigns the desktop shell role to surfaces.
type Shell struct {
	proxy
}

func IsShell(i Interface) bool {
	return i.Is(ShellInterface, 1)
}

// BindShell binds the wl_shell global with the given name.
func BindShell(registry *Registry, name, version uint32) *Shell {
	var shell Shell
	registry.Bind(name, ShellInterface, clampVersion(version, ShellVersion), &shell)

	return &shell
}

// GetShellSurface gives surface the shell surface role.
func (shell *Shell) GetShellSurface(surface *Surface) *ShellSurface {
	var ss ShellSurface
	shell.display.create(shell, &ss)

	msg := newRequest(shell, shellGetShellSurface, ss.id, surface.id)
	msg.WriteUint(ss.id)
	msg.WriteObject(surface)
	shell.display.Enqueue(msg)

	return &ss
}

// ShellSurfaceResize is the set of edges being dragged in an
// interactive resize.
type ShellSurfaceResize uint32

const (
	ShellSurfaceResizeNone   ShellSurfaceResize = 0
	ShellSurfaceResizeTop    ShellSurfaceResize = 1
	ShellSurfaceResizeBottom ShellSurfaceResize = 2
	ShellSurfaceResizeLeft   ShellSurfaceResize = 4
	ShellSurfaceResizeRight  ShellSurfaceResize = 8

	ShellSurfaceResizeTopLeft     = ShellSurfaceResizeTop | ShellSurfaceResizeLeft
	ShellSurfaceResizeBottomLeft  = ShellSurfaceResizeBottom | ShellSurfaceResizeLeft
	ShellSurfaceResizeTopRight    = ShellSurfaceResizeTop | ShellSurfaceResizeRight
	ShellSurfaceResizeBottomRight = ShellSurfaceResizeBottom | ShellSurfaceResizeRight
)

// ShellSurface is the desktop-style role of a surface.
type ShellSurface struct {
	proxy
	Listener ShellSurfaceListener
}

// Pong answers a ping. Pings are answered automatically, so this only
// needs to be called directly in unusual circumstances.
func (ss *ShellSurface) Pong(serial uint32) {
	msg := newRequest(ss, shellSurfacePong, serial)
	msg.WriteUint(serial)
	ss.display.Enqueue(msg)
}

// SetToplevel makes the surface a top-level window.
func (ss *ShellSurface) SetToplevel() {
	ss.display.Enqueue(newRequest(ss, shellSurfaceSetToplevel))
}

func (ss *ShellSurface) SetTitle(title string) {
	msg := newRequest(ss, shellSurfaceSetTitle, title)
	msg.WriteString(title)
	ss.display.Enqueue(msg)
}

// SetClass sets the surface's class, which is usually the basename of
// the application's .desktop file.
func (ss *ShellSurface) SetClass(class string) {
	msg := newRequest(ss, shellSurfaceSetClass, class)
	msg.WriteString(class)
	ss.display.Enqueue(msg)
}

// Destroy invalidates the shell surface. The protocol has no request for
// this, so the role ends when the underlying surface is destroyed.
func (ss *ShellSurface) Destroy() {
	ss.display.destroy(ss, nil)
}
