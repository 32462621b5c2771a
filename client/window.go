package wl

import (
	"fmt"
	"image"
	"slices"
)

const (
	defaultTitle       = "simple-shm"
	defaultBuffers     = 2
	defaultDamageInset = 20
)

// WindowOption configures a Window created by NewWindow.
type WindowOption func(*Window)

// WithTitle sets the title of the window.
func WithTitle(title string) WindowOption {
	return func(w *Window) {
		w.title = title
	}
}

// WithBuffers sets the maximum number of buffers that the window will
// allocate. The default is 2.
func WithBuffers(n int) WindowOption {
	return func(w *Window) {
		w.maxBuffers = max(1, n)
	}
}

// WithDamageInset sets how far in from each edge the damage reported by
// Redraw starts. The default is 20.
func WithDamageInset(inset int32) WindowOption {
	return func(w *Window) {
		w.inset = max(0, inset)
	}
}

// Window is a top-level shell surface backed by a small ring of shared
// memory buffers.
type Window struct {
	globals      *Globals
	surface      *Surface
	shellSurface *ShellSurface

	title         string
	width, height int32
	inset         int32
	maxBuffers    int
	buffers       []*Buffer
}

// NewWindow creates a top-level window of the given size. g must have
// the compositor, shm and shell globals bound, or the returned error is
// a *RoleError.
func NewWindow(g *Globals, width, height int32, opts ...WindowOption) (*Window, error) {
	switch {
	case (g.Compositor == nil) || !g.Compositor.Valid():
		return nil, &RoleError{Interface: CompositorInterface}
	case (g.Shell == nil) || !g.Shell.Valid():
		return nil, &RoleError{Interface: ShellInterface}
	case (g.Shm == nil) || !g.Shm.Valid():
		return nil, &RoleError{Interface: ShmInterface}
	}
	if (width <= 0) || (height <= 0) {
		return nil, fmt.Errorf("invalid window size %vx%v", width, height)
	}

	w := Window{
		globals:    g,
		title:      defaultTitle,
		width:      width,
		height:     height,
		inset:      defaultDamageInset,
		maxBuffers: defaultBuffers,
	}
	for _, opt := range opts {
		opt(&w)
	}

	w.surface = g.Compositor.CreateSurface()
	w.shellSurface = g.Shell.GetShellSurface(w.surface)
	w.shellSurface.Listener.Configure = w.configure
	w.shellSurface.SetTitle(w.title)
	w.shellSurface.SetToplevel()

	return &w, nil
}

func (w *Window) Surface() *Surface {
	return w.surface
}

func (w *Window) ShellSurface() *ShellSurface {
	return w.shellSurface
}

func (w *Window) Width() int32 {
	return w.width
}

func (w *Window) Height() int32 {
	return w.height
}

func (w *Window) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(w.width), int(w.height))
}

// Buffers returns the buffers that the window currently holds.
func (w *Window) Buffers() []*Buffer {
	return slices.Clone(w.buffers)
}

// NextBuffer returns a buffer that may be drawn into. Buffers are
// allocated as needed up to the window's limit. If every buffer is
// busy, it returns ErrBuffersBusy. It returns the same buffer until
// that buffer has been committed.
func (w *Window) NextBuffer() (*Buffer, error) {
	w.buffers = slices.DeleteFunc(w.buffers, func(buf *Buffer) bool {
		return buf.State() == BufferDestroyed
	})

	for _, buf := range w.buffers {
		if buf.State() == BufferFree {
			return buf, nil
		}
	}

	if len(w.buffers) >= w.maxBuffers {
		return nil, ErrBuffersBusy
	}

	buf, err := w.allocate()
	if err != nil {
		return nil, err
	}
	w.buffers = append(w.buffers, buf)

	return buf, nil
}

func (w *Window) allocate() (*Buffer, error) {
	stride := w.width * 4
	size := int64(stride) * int64(w.height)
	if size > (1<<31 - 1) {
		return nil, &AllocationError{Size: size, Err: fmt.Errorf("window too large")}
	}

	if w.globals.Shm == nil {
		return nil, &RoleError{Interface: ShmInterface}
	}

	pool, err := w.globals.Shm.CreatePool(int32(size))
	if err != nil {
		return nil, err
	}
	defer pool.Destroy()

	buf, err := pool.CreateBuffer(0, w.width, w.height, stride, ShmFormatXrgb8888)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	return buf, nil
}

// damage returns the region that Redraw reports as changed.
func (w *Window) damage() image.Rectangle {
	r := w.Bounds().Inset(int(w.inset))
	if r.Empty() {
		return w.Bounds()
	}
	return r
}

// Redraw presents the buffer returned by NextBuffer. The buffer is busy
// until the compositor releases it.
func (w *Window) Redraw() error {
	return w.RedrawRect(w.damage())
}

// RedrawRect is like Redraw, but reports only r as damaged.
func (w *Window) RedrawRect(r image.Rectangle) error {
	buf, err := w.NextBuffer()
	if err != nil {
		return err
	}

	w.surface.Attach(buf, 0, 0)
	w.surface.DamageRect(r.Intersect(w.Bounds()))
	w.surface.Commit()

	return nil
}

// configure resizes the window when the compositor asks it to. Free
// buffers are dropped immediately and busy ones once they are released.
func (w *Window) configure(edges ShellSurfaceResize, width, height int32) {
	if (width <= 0) || (height <= 0) || ((width == w.width) && (height == w.height)) {
		return
	}

	w.width = width
	w.height = height
	w.dropBuffers()
}

func (w *Window) dropBuffers() {
	for _, buf := range w.buffers {
		switch buf.State() {
		case BufferDestroyed:
			continue
		case BufferFree:
			buf.Destroy()
			continue
		}

		release := buf.Listener.Release
		buf.Listener.Release = func() {
			if release != nil {
				release()
			}
			buf.Destroy()
		}
	}
	w.buffers = w.buffers[:0]
}

// Destroy destroys the window and its buffers.
func (w *Window) Destroy() {
	for _, buf := range w.buffers {
		if buf.State() != BufferDestroyed {
			buf.Destroy()
		}
	}
	w.buffers = nil

	w.shellSurface.Destroy()
	w.surface.Destroy()
}
