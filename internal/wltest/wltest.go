// Package wltest provides an in-process fake compositor for testing
// clients. It speaks the core protocol over one end of a socket pair,
// records every request that it receives, and answers them the way a
// minimal compositor would.
package wltest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"deedles.dev/wlcore/internal/debug"
	"deedles.dev/wlcore/internal/objstore"
	"deedles.dev/wlcore/protocol"
	"deedles.dev/wlcore/wire"
)

// Global is a global announced through the registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// DefaultGlobals are the globals announced when Config.Globals is nil.
// They include some that a shm client has no use for.
func DefaultGlobals() []Global {
	return []Global{
		{Name: 1, Interface: "wl_compositor", Version: 4},
		{Name: 2, Interface: "wl_shm", Version: 1},
		{Name: 3, Interface: "wl_shell", Version: 1},
		{Name: 4, Interface: "wl_seat", Version: 7},
		{Name: 5, Interface: "wl_output", Version: 3},
	}
}

// Config configures a Compositor.
type Config struct {
	// Globals are announced when the client gets the registry.
	// DefaultGlobals is used if it is nil.
	Globals []Global

	// Formats are announced when the client binds wl_shm. ARGB8888 and
	// XRGB8888 are used if it is nil.
	Formats []uint32

	// AutoRelease makes the compositor release a surface's previous
	// buffer whenever a new one is committed.
	AutoRelease bool
}

// Request is a decoded request received from the client.
type Request struct {
	Object    uint32
	Interface string
	Name      string
	Op        uint16
	Args      []any
}

func (r Request) String() string {
	return fmt.Sprintf("%v@%v.%v%v", r.Interface, r.Object, r.Name, r.Args)
}

// Pool describes a shm pool created by the client.
type Pool struct {
	ID   uint32
	Size int32

	// FileSize is the size of the file that the client sent.
	FileSize int64
}

// Buffer describes a buffer created by the client.
type Buffer struct {
	ID                            uint32
	Pool                          uint32
	Offset, Width, Height, Stride int32
	Format                        uint32
}

// Compositor is a fake compositor. Its methods may be called
// concurrently with the client, which runs on another goroutine.
type Compositor struct {
	conn  *wire.Conn
	done  chan struct{}
	close sync.Once

	m         sync.Mutex
	config    Config
	store     *objstore.Store
	requests  []Request
	globals   []Global
	pools     map[uint32]*Pool
	buffers   map[uint32]*Buffer
	surfaces  map[uint32]*surfaceState
	destroyed map[uint32]struct{}
	serial    uint32
	err       error
}

type surfaceState struct {
	attached  uint32
	committed uint32
	frames    []uint32
}

// Start starts a compositor and returns it along with the client's end
// of the connection. The compositor is closed when the test finishes.
func Start(t testing.TB, config Config) (*Compositor, *wire.Conn) {
	t.Helper()

	server, client, err := wire.Pair()
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	if config.Globals == nil {
		config.Globals = DefaultGlobals()
	}
	if config.Formats == nil {
		config.Formats = []uint32{0, 1}
	}

	c := Compositor{
		conn:      server,
		done:      make(chan struct{}),
		config:    config,
		store:     objstore.New(0xFF000000),
		globals:   slices.Clone(config.Globals),
		pools:     make(map[uint32]*Pool),
		buffers:   make(map[uint32]*Buffer),
		surfaces:  make(map[uint32]*surfaceState),
		destroyed: make(map[uint32]struct{}),
	}
	c.store.Add(&resource{c: &c, id: 1, iface: "wl_display"})

	go c.serve()
	t.Cleanup(func() { c.Close() })

	return &c, client
}

func (c *Compositor) serve() {
	defer close(c.done)

	for {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			if !isClosed(err) {
				c.setErr(err)
			}
			return
		}

		c.m.Lock()
		err = c.dispatch(msg)
		c.m.Unlock()
		if err != nil {
			c.setErr(err)
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}

func (c *Compositor) setErr(err error) {
	c.m.Lock()
	defer c.m.Unlock()

	c.err = errors.Join(c.err, err)
}

// Err returns any errors encountered while handling requests.
func (c *Compositor) Err() error {
	c.m.Lock()
	defer c.m.Unlock()

	return c.err
}

// Close disconnects the client and waits for the compositor to stop.
func (c *Compositor) Close() (err error) {
	c.close.Do(func() {
		c.conn.SetReadDeadline(time.Unix(1, 0))
		<-c.done
		err = c.conn.Close()
	})
	return err
}

func (c *Compositor) dispatch(msg *wire.MessageBuffer) error {
	obj := c.store.Get(msg.Sender())
	if obj == nil {
		return wire.UnknownSenderIDError{Msg: msg}
	}

	err := obj.Dispatch(msg)
	debug.Printf("server: %v", msg.Debug(obj))
	return err
}

// resource is the compositor's side of a protocol object.
type resource struct {
	c     *Compositor
	id    uint32
	iface string
}

func (r *resource) ID() uint32        { return r.id }
func (r *resource) SetID(id uint32)   { r.id = id }
func (r *resource) Interface() string { return r.iface }
func (r *resource) Delete()           {}

func (r *resource) MethodName(op uint16) string {
	i, _ := protocol.Core().Interface(r.iface)
	if int(op) < len(i.Requests) {
		return i.Requests[op].Name
	}
	return fmt.Sprintf("op%v", op)
}

func (r *resource) Dispatch(msg *wire.MessageBuffer) error {
	i, ok := protocol.Core().Interface(r.iface)
	if !ok || (int(msg.Op()) >= len(i.Requests)) {
		return wire.UnknownOpError{Interface: r.iface, Type: "request", Op: msg.Op()}
	}
	op := i.Requests[msg.Op()]

	req := Request{
		Object:    r.id,
		Interface: r.iface,
		Name:      op.Name,
		Op:        msg.Op(),
		Args:      make([]any, 0, len(op.Args)),
	}
	for _, arg := range op.Args {
		v := r.c.readArg(msg, arg)
		req.Args = append(req.Args, v)
	}
	if err := msg.Err(); err != nil {
		return fmt.Errorf("decode %v: %w", req.Name, err)
	}

	r.c.requests = append(r.c.requests, req)
	err := r.c.handle(req)
	if op.IsDestructor() {
		r.c.forget(r.id)
	}
	return err
}

func (c *Compositor) readArg(msg *wire.MessageBuffer, arg protocol.Arg) any {
	switch arg.Type {
	case "int":
		return msg.ReadInt()
	case "uint":
		return msg.ReadUint()
	case "fixed":
		return msg.ReadFixed()
	case "string":
		return msg.ReadString()
	case "object":
		return msg.ReadObject()
	case "array":
		return msg.ReadArray()
	case "fd":
		return msg.ReadFile()
	case "new_id":
		if arg.Interface != "" {
			id := msg.ReadUint()
			c.track(id, arg.Interface)
			return id
		}
		nid := msg.ReadNewID()
		c.track(nid.ID, nid.Interface)
		return nid
	default:
		panic(fmt.Errorf("unknown argument type %q", arg.Type))
	}
}

func (c *Compositor) track(id uint32, iface string) {
	if id == 0 {
		return
	}
	delete(c.destroyed, id)
	c.store.Add(&resource{c: c, id: id, iface: iface})
}

// forget destroys the object with the given ID and tells the client
// that the ID may be reused.
func (c *Compositor) forget(id uint32) {
	c.store.Delete(id)
	delete(c.surfaces, id)
	c.destroyed[id] = struct{}{}
	c.send(1, "delete_id", id)
}

func (c *Compositor) handle(req Request) error {
	switch req.Interface + "." + req.Name {
	case "wl_display.sync":
		id := req.Args[0].(uint32)
		c.serial++
		c.send(id, "done", c.serial)
		c.forget(id)

	case "wl_display.get_registry":
		id := req.Args[0].(uint32)
		for _, g := range c.globals {
			c.send(id, "global", g.Name, g.Interface, g.Version)
		}

	case "wl_registry.bind":
		nid := req.Args[1].(wire.NewID)
		if nid.Interface == "wl_shm" {
			for _, f := range c.config.Formats {
				c.send(nid.ID, "format", f)
			}
		}

	case "wl_shm.create_pool":
		id := req.Args[0].(uint32)
		file := req.Args[1].(*os.File)
		if file == nil {
			return fmt.Errorf("create_pool without file descriptor")
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat pool file: %w", err)
		}
		c.pools[id] = &Pool{ID: id, Size: req.Args[2].(int32), FileSize: info.Size()}

	case "wl_shm_pool.resize":
		if pool := c.pools[req.Object]; pool != nil {
			pool.Size = req.Args[0].(int32)
		}

	case "wl_shm_pool.create_buffer":
		buf := Buffer{
			ID:     req.Args[0].(uint32),
			Pool:   req.Object,
			Offset: req.Args[1].(int32),
			Width:  req.Args[2].(int32),
			Height: req.Args[3].(int32),
			Stride: req.Args[4].(int32),
			Format: req.Args[5].(uint32),
		}
		pool := c.pools[req.Object]
		if (pool == nil) || (int64(buf.Offset)+int64(buf.Stride)*int64(buf.Height) > int64(pool.Size)) {
			c.send(1, "error", req.Object, uint32(1), "invalid buffer geometry")
			return nil
		}
		c.buffers[buf.ID] = &buf

	case "wl_compositor.create_surface":
		c.surfaces[req.Args[0].(uint32)] = new(surfaceState)

	case "wl_surface.attach":
		if s := c.surfaces[req.Object]; s != nil {
			s.attached = req.Args[0].(uint32)
		}

	case "wl_surface.frame":
		if s := c.surfaces[req.Object]; s != nil {
			s.frames = append(s.frames, req.Args[0].(uint32))
		}

	case "wl_surface.commit":
		s := c.surfaces[req.Object]
		if s == nil {
			return nil
		}
		if c.config.AutoRelease && (s.committed != 0) && (s.committed != s.attached) {
			c.send(s.committed, "release")
		}
		s.committed = s.attached
		for _, id := range s.frames {
			c.serial++
			c.send(id, "done", c.serial)
			c.forget(id)
		}
		s.frames = nil
	}

	return nil
}

// send sends an event from the object with the given ID. Arguments are
// encoded according to their Go types.
func (c *Compositor) send(id uint32, event string, args ...any) {
	err := c.sendErr(id, event, args...)
	if err != nil {
		c.err = errors.Join(c.err, err)
	}
}

func (c *Compositor) sendErr(id uint32, event string, args ...any) error {
	obj := c.store.Get(id)
	if obj == nil {
		return fmt.Errorf("send %v from unknown object %v", event, id)
	}
	i, _ := protocol.Core().Interface(obj.Interface())
	op := slices.IndexFunc(i.Events, func(op protocol.Op) bool { return op.Name == event })
	if op < 0 {
		return fmt.Errorf("unknown event %v.%v", obj.Interface(), event)
	}

	msg := wire.NewMessage(obj, uint16(op))
	msg.Method = event
	msg.Args = args
	for _, arg := range args {
		switch arg := arg.(type) {
		case uint32:
			msg.WriteUint(arg)
		case int32:
			msg.WriteInt(arg)
		case string:
			msg.WriteString(arg)
		case wire.Fixed:
			msg.WriteFixed(arg)
		case []byte:
			msg.WriteArray(arg)
		case *os.File:
			msg.WriteFile(arg)
		default:
			panic(fmt.Errorf("unsupported argument type %T", arg))
		}
	}

	debug.Printf("server:  -> %v", msg)
	return msg.Build(c.conn)
}

// Send sends an event from the object with the given ID.
func (c *Compositor) Send(id uint32, event string, args ...any) error {
	c.m.Lock()
	defer c.m.Unlock()

	return c.sendErr(id, event, args...)
}

// Ping pings a shell surface.
func (c *Compositor) Ping(shellSurface, serial uint32) error {
	return c.Send(shellSurface, "ping", serial)
}

// Configure asks a shell surface to resize.
func (c *Compositor) Configure(shellSurface, edges uint32, width, height int32) error {
	return c.Send(shellSurface, "configure", edges, width, height)
}

// Release releases a buffer.
func (c *Compositor) Release(buffer uint32) error {
	return c.Send(buffer, "release")
}

// PostError sends a fatal protocol error.
func (c *Compositor) PostError(object, code uint32, message string) error {
	return c.Send(1, "error", object, code, message)
}

// AddGlobal announces a new global to every registry.
func (c *Compositor) AddGlobal(g Global) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.globals = append(c.globals, g)
	var errs []error
	for _, id := range c.objects("wl_registry") {
		errs = append(errs, c.sendErr(id, "global", g.Name, g.Interface, g.Version))
	}
	return errors.Join(errs...)
}

// RemoveGlobal removes a global from every registry.
func (c *Compositor) RemoveGlobal(name uint32) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.globals = slices.DeleteFunc(c.globals, func(g Global) bool { return g.Name == name })
	var errs []error
	for _, id := range c.objects("wl_registry") {
		errs = append(errs, c.sendErr(id, "global_remove", name))
	}
	return errors.Join(errs...)
}

// Requests returns every request received so far, in order.
func (c *Compositor) Requests() []Request {
	c.m.Lock()
	defer c.m.Unlock()

	return slices.Clone(c.requests)
}

// Find returns the requests with the given interface and name.
func (c *Compositor) Find(iface, name string) []Request {
	c.m.Lock()
	defer c.m.Unlock()

	var found []Request
	for _, req := range c.requests {
		if (req.Interface == iface) && (req.Name == name) {
			found = append(found, req)
		}
	}
	return found
}

// Objects returns the IDs of the live objects with the given
// interface in ascending order.
func (c *Compositor) Objects(iface string) []uint32 {
	c.m.Lock()
	defer c.m.Unlock()

	return c.objects(iface)
}

func (c *Compositor) objects(iface string) []uint32 {
	var ids []uint32
	for _, req := range c.requests {
		for _, arg := range req.Args {
			var id uint32
			switch arg := arg.(type) {
			case wire.NewID:
				id = arg.ID
			case uint32:
				id = arg
			default:
				continue
			}
			obj := c.store.Get(id)
			if (obj != nil) && (obj.Interface() == iface) && !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// Destroyed reports whether the client destroyed the object with the
// given ID and the ID hasn't been reused since.
func (c *Compositor) Destroyed(id uint32) bool {
	c.m.Lock()
	defer c.m.Unlock()

	_, ok := c.destroyed[id]
	return ok
}

// Pools returns the pools that the client has created.
func (c *Compositor) Pools() []Pool {
	c.m.Lock()
	defer c.m.Unlock()

	pools := make([]Pool, 0, len(c.pools))
	for _, pool := range c.pools {
		pools = append(pools, *pool)
	}
	slices.SortFunc(pools, func(p1, p2 Pool) int { return int(p1.ID) - int(p2.ID) })
	return pools
}

// Buffers returns the buffers that the client has created, including
// destroyed ones.
func (c *Compositor) Buffers() []Buffer {
	c.m.Lock()
	defer c.m.Unlock()

	buffers := make([]Buffer, 0, len(c.buffers))
	for _, buf := range c.buffers {
		buffers = append(buffers, *buf)
	}
	slices.SortFunc(buffers, func(b1, b2 Buffer) int { return int(b1.ID) - int(b2.ID) })
	return buffers
}
