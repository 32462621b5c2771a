package wl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"deedles.dev/wlcore/internal/debug"
	"deedles.dev/wlcore/internal/ev"
	"deedles.dev/wlcore/internal/objstore"
	"deedles.dev/wlcore/wire"
)

// Display is a connection to a compositor.
type Display struct {
	// Listener receives the events of the wl_display object, which
	// always has ID 1.
	Listener DisplayListener

	obj      displayObject
	conn     *wire.Conn
	objects  *objstore.Store
	out      ev.Events
	errs     []error
	fatal    error
	registry *Registry
}

// Dial connects to the compositor determined by the environment.
func Dial() (*Display, error) {
	return Connect("")
}

// Connect connects to the compositor listening on the socket with the
// given name. See wire.SocketPath for how the name is resolved. If the
// connection can't be established, the returned error is a
// *ConnectionError.
func Connect(name string) (*Display, error) {
	conn, err := wire.Dial(name)
	if err != nil {
		return nil, &ConnectionError{Path: wire.SocketPath(name), Err: err}
	}
	return NewDisplay(conn), nil
}

// NewDisplay creates a Display that communicates over conn. The
// Display takes ownership of conn.
func NewDisplay(conn *wire.Conn) *Display {
	display := Display{
		conn:    conn,
		objects: objstore.New(1),
	}
	display.add(&display.obj)

	return &display
}

func (display *Display) add(obj object) {
	p := obj.base()
	p.display = display
	p.handle = display.objects.Add(obj)
}

// create registers obj as a new object constructed by a request sent
// from parent. If parent is no longer valid, the request will never be
// sent, so obj is left unregistered and reports itself as invalid.
func (display *Display) create(parent, obj object) {
	p := parent.base()
	if (p.display != display) || !display.objects.Valid(p.handle) {
		obj.base().display = display
		return
	}
	display.add(obj)
}

// check reports whether obj may be used in a request. If it may not,
// an *InvalidHandleError is reported by the next flush.
func (display *Display) check(obj object) bool {
	p := obj.base()
	if (p.display == display) && display.objects.Valid(p.handle) {
		return true
	}

	display.errs = append(display.errs, &InvalidHandleError{
		Interface: obj.Interface(),
		ID:        p.id,
	})
	return false
}

// Enqueue queues a request to be sent on the next flush. Requests from
// objects that are no longer valid are dropped and reported as an
// *InvalidHandleError instead.
func (display *Display) Enqueue(msg *wire.MessageBuilder) {
	if obj, ok := msg.Sender().(object); ok && !display.check(obj) {
		msg.Discard()
		return
	}

	display.out.Add(func() error {
		debug.Printf(" -> %v", msg)
		err := msg.Build(display.conn)
		if err != nil {
			return display.disconnected(fmt.Errorf("send %v: %w", msg.Method, err))
		}
		return nil
	})
}

// destroy sends a destructor request for obj and invalidates it. The
// ID is released once the compositor acknowledges the destruction.
func (display *Display) destroy(obj object, msg *wire.MessageBuilder) {
	if msg != nil {
		display.Enqueue(msg)
	}
	display.objects.Invalidate(obj.ID())
}

// Flush sends all queued requests. It also returns any errors that
// were deferred since the last flush, such as requests on invalid
// objects.
func (display *Display) Flush() error {
	errs := ev.Flush(&display.out)
	errs = append(display.errs, errs...)
	display.errs = nil
	return errors.Join(errs...)
}

// Close sends any queued requests, invalidates every object created
// through the display, and then closes the connection.
func (display *Display) Close() error {
	if display.fatal == nil {
		display.Flush()
	}
	display.objects.Clear()
	return display.conn.Close()
}

// Err returns the fatal error that ended the connection, if any.
func (display *Display) Err() error {
	return display.fatal
}

func (display *Display) disconnected(err error) error {
	if display.fatal != nil {
		return display.fatal
	}

	var derr *DisconnectedError
	if !errors.As(err, &derr) {
		derr = &DisconnectedError{Err: err}
	}
	display.fatal = derr
	return derr
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func (display *Display) protocolError(objectID, code uint32, message string) {
	perr := ProtocolError{
		ObjectID: objectID,
		Code:     code,
		Message:  message,
	}
	if obj := display.objects.Get(objectID); obj != nil {
		perr.Interface = obj.Interface()
	}
	display.fatal = &perr
}

func (display *Display) dispatch(msg *wire.MessageBuffer) error {
	obj := display.objects.Get(msg.Sender())
	if obj == nil {
		if display.objects.IsZombie(msg.Sender()) {
			debug.Printf("discarded event %v for destroyed object %v", msg.Op(), msg.Sender())
			return nil
		}
		return wire.UnknownSenderIDError{Msg: msg}
	}

	err := obj.Dispatch(msg)
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(obj))
	}

	return errors.Join(err, display.Flush())
}

// Dispatch waits for at least one event and then dispatches every
// event that has arrived, in order. Queued requests are flushed first.
// If the connection is lost, it returns a *DisconnectedError.
func (display *Display) Dispatch() error {
	return display.DispatchContext(context.Background())
}

// DispatchContext is like Dispatch, but stops waiting for events if ctx
// is canceled, in which case it returns ctx.Err().
func (display *Display) DispatchContext(ctx context.Context) error {
	if display.fatal != nil {
		return display.fatal
	}

	err := display.Flush()
	if display.fatal != nil {
		return err
	}
	errs := []error{err}

	msg, err := display.read(ctx)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}

	var batch ev.Events
	batch.Add(func() error { return display.dispatch(msg) })
	for display.conn.Pending() {
		msg, err := wire.ReadMessage(display.conn)
		if err != nil {
			batch.Add(func() error { return display.disconnected(err) })
			break
		}
		batch.Add(func() error { return display.dispatch(msg) })
	}
	errs = append(errs, batch.Flush())

	if display.fatal != nil {
		errs = append(errs, display.fatal)
	}
	return errors.Join(errs...)
}

func (display *Display) read(ctx context.Context) (*wire.MessageBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		display.conn.SetReadDeadline(time.Unix(1, 0))
	})

	msg, err := wire.ReadMessage(display.conn)
	if !stop() {
		<-interrupted
		display.conn.SetReadDeadline(time.Time{})
		if (err != nil) && errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		if isDisconnect(err) {
			return nil, display.disconnected(err)
		}
		return nil, err
	}

	return msg, nil
}

// Run dispatches events until ctx is canceled or an error occurs. It
// returns nil if it stopped because of ctx.
func (display *Display) Run(ctx context.Context) error {
	for {
		err := display.DispatchContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RoundTrip blocks until the compositor has processed every request
// sent so far and every event that it sent in response has been
// dispatched.
func (display *Display) RoundTrip() error {
	return display.RoundTripContext(context.Background())
}

// RoundTripContext is like RoundTrip, but gives up if ctx is canceled.
func (display *Display) RoundTripContext(ctx context.Context) error {
	var done bool
	display.Sync(func(uint32) { done = true })

	var errs []error
	for !done {
		err := display.DispatchContext(ctx)
		if err == nil {
			continue
		}

		errs = append(errs, err)
		if (display.fatal != nil) || (ctx.Err() != nil) {
			break
		}
	}

	return errors.Join(errs...)
}

// Sync asks the compositor to call done once it has processed every
// request sent before this one.
func (display *Display) Sync(done func(data uint32)) *Callback {
	callback := Callback{Listener: CallbackListener{Done: done}}
	display.create(&display.obj, &callback)
	display.Enqueue(display.sync(&callback))
	return &callback
}

func (display *Display) sync(callback *Callback) *wire.MessageBuilder {
	msg := newRequest(&display.obj, displaySync, callback.id)
	msg.WriteUint(callback.id)
	return msg
}

// GetRegistry returns the display's registry, creating it the first
// time that it is called.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := Registry{
		globals: make(map[uint32]Interface),
		bound:   make(map[uint32][]objstore.Handle),
	}
	display.create(&display.obj, &registry)

	msg := newRequest(&display.obj, displayGetRegistry, registry.id)
	msg.WriteUint(registry.id)
	display.Enqueue(msg)

	display.registry = &registry
	return &registry
}

// Objects returns the number of live protocol objects, including the
// display itself.
func (display *Display) Objects() int {
	return display.objects.Len()
}
