package wl

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"deedles.dev/wlcore/internal/wltest"
	"deedles.dev/wlcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, config wltest.Config) (*wltest.Compositor, *Display, *Globals) {
	t.Helper()

	srv, conn := wltest.Start(t, config)
	display := NewDisplay(conn)
	t.Cleanup(func() { display.Close() })

	g := BindGlobals(display)
	require.NoError(t, display.RoundTrip())
	require.NoError(t, display.RoundTrip())

	return srv, display, g
}

func TestDisplay_RoundTrip(t *testing.T) {
	srv, display, _ := setup(t, wltest.Config{})

	syncs := srv.Find(DisplayInterface, "sync")
	require.Len(t, syncs, 2)
	assert.Len(t, srv.Find(DisplayInterface, "get_registry"), 1)
	assert.NoError(t, srv.Err())

	// display, registry, compositor, shm, shell
	assert.Equal(t, 5, display.Objects())
}

func TestDisplay_GetRegistryIdempotent(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	assert.Same(t, g.Registry, display.GetRegistry())
	require.NoError(t, display.RoundTrip())
	assert.Len(t, srv.Find(DisplayInterface, "get_registry"), 1)
}

func TestRegistry_Globals(t *testing.T) {
	_, _, g := setup(t, wltest.Config{})

	globals := g.Registry.Globals()
	require.Len(t, globals, 5)
	assert.Equal(t, Interface{Name: "wl_seat", Version: 7}, globals[4])
	assert.True(t, IsCompositor(globals[1]))
	assert.True(t, IsShm(globals[2]))
	assert.True(t, IsShell(globals[3]))

	delete(globals, 1)
	assert.Len(t, g.Registry.Globals(), 5)
}

func TestBindGlobals_RandomAnnouncements(t *testing.T) {
	known := []string{CompositorInterface, ShmInterface, ShellInterface}
	all := append(slices.Clone(known), "wl_seat", "wl_output", "wl_data_device_manager", "xdg_wm_base")

	r := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		globals := []wltest.Global{}
		n := r.IntN(12)
		for i := range n {
			globals = append(globals, wltest.Global{
				Name:      uint32(i*3 + 1 + r.IntN(3)),
				Interface: all[r.IntN(len(all))],
				Version:   uint32(1 + r.IntN(6)),
			})
		}
		r.Shuffle(len(globals), func(i, j int) { globals[i], globals[j] = globals[j], globals[i] })

		srv, _, g := setup(t, wltest.Config{Globals: globals})

		want := make(map[uint32]string)
		for _, inter := range known {
			i := slices.IndexFunc(globals, func(g wltest.Global) bool { return g.Interface == inter })
			if i >= 0 {
				want[globals[i].Name] = inter
			}
		}

		binds := srv.Find(RegistryInterface, "bind")
		got := make(map[uint32]string)
		ids := make(map[uint32]struct{})
		for _, bind := range binds {
			name := bind.Args[0].(uint32)
			nid := bind.Args[1].(wire.NewID)
			got[name] = nid.Interface

			assert.NotContains(t, ids, nid.ID)
			assert.Greater(t, nid.ID, uint32(2))
			ids[nid.ID] = struct{}{}
		}
		assert.Equal(t, want, got)
		assert.Len(t, binds, len(want))

		assert.Equal(t, slices.ContainsFunc(globals, func(g wltest.Global) bool { return g.Interface == CompositorInterface }), g.Compositor != nil)
		assert.Equal(t, slices.ContainsFunc(globals, func(g wltest.Global) bool { return g.Interface == ShmInterface }), g.Shm != nil)
		assert.Equal(t, slices.ContainsFunc(globals, func(g wltest.Global) bool { return g.Interface == ShellInterface }), g.Shell != nil)
		assert.NoError(t, srv.Err())
	}
}

func TestBindGlobals_ClampsVersion(t *testing.T) {
	srv, _, g := setup(t, wltest.Config{Globals: []wltest.Global{
		{Name: 1, Interface: CompositorInterface, Version: 6},
		{Name: 2, Interface: ShmInterface, Version: 2},
	}})

	assert.Equal(t, uint32(CompositorVersion), g.Compositor.Version())

	binds := srv.Find(RegistryInterface, "bind")
	require.Len(t, binds, 2)
	assert.Equal(t, uint32(CompositorVersion), binds[0].Args[1].(wire.NewID).Version)
	assert.Equal(t, uint32(ShmVersion), binds[1].Args[1].(wire.NewID).Version)
}

func TestGlobalRemove_InvalidatesBoundObjects(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	shell := g.Shell
	surface := g.Compositor.CreateSurface()
	require.NoError(t, srv.RemoveGlobal(3))
	require.NoError(t, display.RoundTrip())

	assert.Nil(t, g.Shell)
	assert.False(t, shell.Valid())
	assert.NotContains(t, g.Registry.Globals(), uint32(3))

	shell.GetShellSurface(surface)
	err := display.Flush()
	var herr *InvalidHandleError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ShellInterface, herr.Interface)

	require.NoError(t, display.RoundTrip())
	assert.Empty(t, srv.Find(ShellInterface, "get_shell_surface"))

	_, err = NewWindow(g, 250, 250)
	var rerr *RoleError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ShellInterface, rerr.Interface)
}

func TestGlobalRemove_ChildrenOfInvalidObjects(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	shell := g.Shell
	surface := g.Compositor.CreateSurface()
	require.NoError(t, srv.RemoveGlobal(3))
	require.NoError(t, display.RoundTrip())

	ss := shell.GetShellSurface(surface)
	assert.False(t, ss.Valid())
	ss.SetToplevel()
	ss.SetTitle("stale")

	err := display.Flush()
	var herr *InvalidHandleError
	require.ErrorAs(t, err, &herr)

	surface.Destroy()
	frame := surface.Frame(func(uint32) {})
	assert.False(t, frame.Valid())
	assert.Error(t, display.Flush())

	require.NoError(t, display.RoundTrip())
	assert.Empty(t, srv.Find(ShellInterface, "get_shell_surface"))
	assert.Empty(t, srv.Find(ShellSurfaceInterface, "set_toplevel"))
	assert.Empty(t, srv.Find(SurfaceInterface, "frame"))
	assert.NoError(t, srv.Err())
}

func TestGlobalAdd_AfterStartup(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{Globals: []wltest.Global{
		{Name: 1, Interface: CompositorInterface, Version: 4},
	}})
	require.Nil(t, g.Shm)

	require.NoError(t, srv.AddGlobal(wltest.Global{Name: 9, Interface: ShmInterface, Version: 1}))
	require.NoError(t, display.RoundTrip())
	require.NoError(t, display.RoundTrip())

	require.NotNil(t, g.Shm)
	assert.True(t, g.Formats.Has(ShmFormatXrgb8888))
}

func TestConnect_Error(t *testing.T) {
	_, err := Connect(t.TempDir() + "/missing-socket")

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Path, "missing-socket")
	assert.Error(t, cerr.Err)
}

func TestDisplay_Disconnect(t *testing.T) {
	srv, display, _ := setup(t, wltest.Config{})

	require.NoError(t, srv.Close())

	err := display.Dispatch()
	var derr *DisconnectedError
	require.ErrorAs(t, err, &derr)
	assert.Same(t, derr, display.Err())

	err = display.RoundTrip()
	assert.ErrorAs(t, err, &derr)
}

func TestDisplay_RunCanceled(t *testing.T) {
	srv, display, _ := setup(t, wltest.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, display.Run(ctx))
	assert.NoError(t, display.Err())

	require.NoError(t, display.RoundTrip())
	assert.Len(t, srv.Find(DisplayInterface, "sync"), 3)
	assert.NoError(t, srv.Err())
}

func TestDisplay_DispatchContextCanceled(t *testing.T) {
	_, display, _ := setup(t, wltest.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, display.DispatchContext(ctx), context.DeadlineExceeded)
	assert.NoError(t, display.Err())

	require.NoError(t, display.RoundTrip())
}

func TestDisplay_RoundTripContextCanceled(t *testing.T) {
	_, display, g := setup(t, wltest.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, display.RoundTripContext(ctx), context.Canceled)
	assert.NoError(t, display.Err())

	require.NoError(t, display.RoundTrip())
	assert.True(t, g.Compositor.Valid())
}

func TestDisplay_ProtocolError(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	var reported uint32
	display.Listener.Error = func(objectID, code uint32, message string) {
		reported = code
	}

	require.NoError(t, srv.PostError(g.Shm.ID(), 2, "bad fd"))
	err := display.RoundTrip()

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, g.Shm.ID(), perr.ObjectID)
	assert.Equal(t, uint32(2), perr.Code)
	assert.Equal(t, "bad fd", perr.Message)
	assert.Equal(t, ShmInterface, perr.Interface)
	assert.Equal(t, uint32(2), reported)

	assert.ErrorAs(t, display.Dispatch(), &perr)
}

func TestDisplay_DeleteID(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	var deleted []uint32
	display.Listener.DeleteID = func(id uint32) { deleted = append(deleted, id) }

	surface := g.Compositor.CreateSurface()
	id := surface.ID()
	surface.Destroy()
	assert.False(t, surface.Valid())

	require.NoError(t, display.RoundTrip())
	assert.Contains(t, deleted, id)
	assert.Len(t, srv.Find(SurfaceInterface, "destroy"), 1)

	// The ID is free again, so one of the next few objects gets it.
	var again *Surface
	for range 4 {
		s := g.Compositor.CreateSurface()
		if s.ID() == id {
			again = s
			break
		}
	}
	require.NotNil(t, again)
	assert.False(t, surface.Valid())
	assert.True(t, again.Valid())
}

func TestDisplay_ZombieEventsDropped(t *testing.T) {
	srv, display, g := setup(t, wltest.Config{})

	pool, err := g.Shm.CreatePool(64)
	require.NoError(t, err)
	buf, err := pool.CreateBuffer(0, 4, 4, 16, ShmFormatArgb8888)
	require.NoError(t, err)
	require.NoError(t, display.RoundTrip())

	var released bool
	buf.Listener.Release = func() { released = true }
	buf.Destroy()
	require.NoError(t, srv.Release(buf.ID()))

	require.NoError(t, display.RoundTrip())
	assert.False(t, released)
	assert.Equal(t, BufferDestroyed, buf.State())
}

func TestDisplay_Close(t *testing.T) {
	_, display, g := setup(t, wltest.Config{})

	require.NoError(t, display.Close())
	assert.False(t, g.Compositor.Valid())
	assert.False(t, g.Registry.Valid())
	assert.Equal(t, 0, display.Objects())

	err := display.Flush()
	assert.NoError(t, err)

	g.Compositor.CreateSurface()
	var herr *InvalidHandleError
	assert.True(t, errors.As(display.Flush(), &herr))
}
