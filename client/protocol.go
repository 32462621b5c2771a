package wl

import (
	"fmt"

	"deedles.dev/wlcore/protocol"
	"deedles.dev/wlcore/wire"
)

// Interface names and the highest version of each that this package
// implements.
const (
	DisplayInterface      = "wl_display"
	RegistryInterface     = "wl_registry"
	CallbackInterface     = "wl_callback"
	CompositorInterface   = "wl_compositor"
	SurfaceInterface      = "wl_surface"
	ShmInterface          = "wl_shm"
	ShmPoolInterface      = "wl_shm_pool"
	BufferInterface       = "wl_buffer"
	ShellInterface        = "wl_shell"
	ShellSurfaceInterface = "wl_shell_surface"

	CompositorVersion = 4
	ShmVersion        = 1
	ShellVersion      = 1
)

const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1
)

const (
	registryBind = 0

	registryEventGlobal       = 0
	registryEventGlobalRemove = 1
)

const callbackEventDone = 0

const (
	compositorCreateSurface = 0
)

const (
	surfaceDestroy      = 0
	surfaceAttach       = 1
	surfaceDamage       = 2
	surfaceFrame        = 3
	surfaceCommit       = 6
	surfaceDamageBuffer = 9

	surfaceEventEnter = 0
	surfaceEventLeave = 1
)

const (
	shmCreatePool = 0

	shmEventFormat = 0
)

const (
	shmPoolCreateBuffer = 0
	shmPoolDestroy      = 1
	shmPoolResize       = 2
)

const (
	bufferDestroy = 0

	bufferEventRelease = 0
)

const (
	shellGetShellSurface = 0
)

const (
	shellSurfacePong        = 0
	shellSurfaceSetToplevel = 3
	shellSurfaceSetTitle    = 8
	shellSurfaceSetClass    = 9

	shellSurfaceEventPing      = 0
	shellSurfaceEventConfigure = 1
	shellSurfaceEventPopupDone = 2
)

func opName(iface string, op uint16, names func(protocol.Interface) []string) string {
	i, ok := protocol.Core().Interface(iface)
	if !ok {
		return fmt.Sprintf("op%v", op)
	}
	n := names(i)
	if int(op) >= len(n) {
		return fmt.Sprintf("op%v", op)
	}
	return n[op]
}

func eventName(iface string, op uint16) string {
	return opName(iface, op, protocol.Interface.EventNames)
}

func requestName(iface string, op uint16) string {
	return opName(iface, op, protocol.Interface.RequestNames)
}

// newRequest starts a request from sender. args are recorded for
// debugging output only; the caller encodes the actual arguments.
func newRequest(sender wire.Object, op uint16, args ...any) *wire.MessageBuilder {
	msg := wire.NewMessage(sender, op)
	msg.Method = requestName(sender.Interface(), op)
	msg.Args = args
	return msg
}

func unknownEvent(iface string, op uint16) error {
	return wire.UnknownOpError{Interface: iface, Type: "event", Op: op}
}

// DisplayListener holds the callbacks for wl_display events. The
// Display handles both events itself before calling them.
type DisplayListener struct {
	Error    func(objectID, code uint32, message string)
	DeleteID func(id uint32)
}

// displayObject is the wl_display protocol object of a Display.
type displayObject struct {
	proxy
}

func (obj *displayObject) Interface() string {
	return DisplayInterface
}

func (obj *displayObject) MethodName(op uint16) string {
	return eventName(DisplayInterface, op)
}

func (obj *displayObject) Dispatch(msg *wire.MessageBuffer) error {
	display := obj.display
	switch msg.Op() {
	case displayEventError:
		objectID := msg.ReadObject()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}

		display.protocolError(objectID, code, message)
		if display.Listener.Error != nil {
			display.Listener.Error(objectID, code, message)
		}
		return nil

	case displayEventDeleteID:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		display.objects.Delete(id)
		if display.Listener.DeleteID != nil {
			display.Listener.DeleteID(id)
		}
		return nil

	default:
		return unknownEvent(DisplayInterface, msg.Op())
	}
}

// RegistryListener holds the callbacks for wl_registry events. The
// Registry records the global table before they are called.
type RegistryListener struct {
	Global       func(name uint32, inter string, version uint32)
	GlobalRemove func(name uint32)
}

func (registry *Registry) Interface() string {
	return RegistryInterface
}

func (registry *Registry) MethodName(op uint16) string {
	return eventName(RegistryInterface, op)
}

func (registry *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case registryEventGlobal:
		name := msg.ReadUint()
		inter := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		registry.global(name, inter, version)
		return nil

	case registryEventGlobalRemove:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		registry.globalRemove(name)
		return nil

	default:
		return unknownEvent(RegistryInterface, msg.Op())
	}
}

// CallbackListener holds the callbacks for wl_callback events.
type CallbackListener struct {
	Done func(data uint32)
}

func (c *Callback) Interface() string {
	return CallbackInterface
}

func (c *Callback) MethodName(op uint16) string {
	return eventName(CallbackInterface, op)
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case callbackEventDone:
		data := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		c.display.objects.Invalidate(c.id)
		if c.Listener.Done != nil {
			c.Listener.Done(data)
		}
		return nil

	default:
		return unknownEvent(CallbackInterface, msg.Op())
	}
}

func (c *Compositor) Interface() string {
	return CompositorInterface
}

func (c *Compositor) MethodName(op uint16) string {
	return eventName(CompositorInterface, op)
}

func (c *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	return unknownEvent(CompositorInterface, msg.Op())
}

// SurfaceListener holds the callbacks for wl_surface events. Outputs
// are identified by their object IDs.
type SurfaceListener struct {
	Enter func(output uint32)
	Leave func(output uint32)
}

func (s *Surface) Interface() string {
	return SurfaceInterface
}

func (s *Surface) MethodName(op uint16) string {
	return eventName(SurfaceInterface, op)
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case surfaceEventEnter:
		output := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		if s.Listener.Enter != nil {
			s.Listener.Enter(output)
		}
		return nil

	case surfaceEventLeave:
		output := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		if s.Listener.Leave != nil {
			s.Listener.Leave(output)
		}
		return nil

	default:
		return unknownEvent(SurfaceInterface, msg.Op())
	}
}

// ShmListener holds the callbacks for wl_shm events.
type ShmListener struct {
	Format func(format ShmFormat)
}

func (shm *Shm) Interface() string {
	return ShmInterface
}

func (shm *Shm) MethodName(op uint16) string {
	return eventName(ShmInterface, op)
}

func (shm *Shm) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case shmEventFormat:
		format := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		if shm.Listener.Format != nil {
			shm.Listener.Format(ShmFormat(format))
		}
		return nil

	default:
		return unknownEvent(ShmInterface, msg.Op())
	}
}

func (pool *ShmPool) Interface() string {
	return ShmPoolInterface
}

func (pool *ShmPool) MethodName(op uint16) string {
	return eventName(ShmPoolInterface, op)
}

func (pool *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	return unknownEvent(ShmPoolInterface, msg.Op())
}

// BufferListener holds the callbacks for wl_buffer events. The Buffer
// marks itself free before Release is called.
type BufferListener struct {
	Release func()
}

func (buf *Buffer) Interface() string {
	return BufferInterface
}

func (buf *Buffer) MethodName(op uint16) string {
	return eventName(BufferInterface, op)
}

func (buf *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case bufferEventRelease:
		buf.release()
		if buf.Listener.Release != nil {
			buf.Listener.Release()
		}
		return nil

	default:
		return unknownEvent(BufferInterface, msg.Op())
	}
}

func (shell *Shell) Interface() string {
	return ShellInterface
}

func (shell *Shell) MethodName(op uint16) string {
	return eventName(ShellInterface, op)
}

func (shell *Shell) Dispatch(msg *wire.MessageBuffer) error {
	return unknownEvent(ShellInterface, msg.Op())
}

// ShellSurfaceListener holds the callbacks for wl_shell_surface
// events. The ShellSurface answers pings itself before Ping is called.
type ShellSurfaceListener struct {
	Ping      func(serial uint32)
	Configure func(edges ShellSurfaceResize, width, height int32)
	PopupDone func()
}

func (ss *ShellSurface) Interface() string {
	return ShellSurfaceInterface
}

func (ss *ShellSurface) MethodName(op uint16) string {
	return eventName(ShellSurfaceInterface, op)
}

func (ss *ShellSurface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case shellSurfaceEventPing:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		ss.Pong(serial)
		if ss.Listener.Ping != nil {
			ss.Listener.Ping(serial)
		}
		return nil

	case shellSurfaceEventConfigure:
		edges := msg.ReadUint()
		width := msg.ReadInt()
		height := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		if ss.Listener.Configure != nil {
			ss.Listener.Configure(ShellSurfaceResize(edges), width, height)
		}
		return nil

	case shellSurfaceEventPopupDone:
		if ss.Listener.PopupDone != nil {
			ss.Listener.PopupDone()
		}
		return nil

	default:
		return unknownEvent(ShellSurfaceInterface, msg.Op())
	}
}
