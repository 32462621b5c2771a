package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"deedles.dev/wlcore/internal/bin"
	"golang.org/x/sys/unix"
)

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// named name. If name is empty, it is taken from the $WAYLAND_DISPLAY
// environment variable, defaulting to "wayland-0". Relative names are
// resolved against $XDG_RUNTIME_DIR. It does not attempt to determine
// if the value corresponds to an actual socket.
func SocketPath(name string) string {
	if name == "" {
		v, ok := os.LookupEnv("WAYLAND_DISPLAY")
		if !ok || v == "" {
			v = "wayland-0"
		}
		name = v
	}
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(xdgRuntimeDir(), name)
}

// Conn represents a low-level Wayland connection. Incoming bytes are
// buffered, and file descriptors received as ancillary data are kept
// in a queue from which decoded fd arguments are taken in order.
//
// A Conn is not safe for concurrent use.
type Conn struct {
	conn *net.UnixConn
	r    *bufio.Reader
	oob  []byte
	fds  []int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	conn := Conn{
		conn: c,
		oob:  make([]byte, unix.CmsgSpace(MaxFDs*bin.Size)),
	}
	conn.r = bufio.NewReaderSize(fdReader{c: &conn}, MaxMessageSize+1)
	return &conn
}

// Dial opens a connection to the Wayland socket named name. If name
// is empty, the connection is determined from the current environment
// following the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial(name string) (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok && (name == "") {
		os.Unsetenv("WAYLAND_SOCKET")

		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("WAYLAND_SOCKET fd %v is not a Unix socket", fd)
		}
		return NewConn(uc), nil
	}

	addr := &net.UnixAddr{Name: SocketPath(name), Net: "unix"}
	c, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// Pair returns both ends of a connected, anonymous Unix socket pair.
func Pair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	var conns [2]*Conn
	for i, fd := range fds {
		file := os.NewFile(uintptr(fd), "wayland-pair")
		c, err := net.FileConn(file)
		file.Close()
		if err != nil {
			if conns[0] != nil {
				conns[0].Close()
			}
			return nil, nil, fmt.Errorf("open socketpair end: %w", err)
		}
		conns[i] = NewConn(c.(*net.UnixConn))
	}

	return conns[0], conns[1], nil
}

// Close closes the underlying connection along with any received file
// descriptors that were never claimed by a decoded message.
func (c *Conn) Close() error {
	errs := make([]error, 0, len(c.fds)+1)
	for _, fd := range c.fds {
		errs = append(errs, unix.Close(fd))
	}
	c.fds = nil
	errs = append(errs, c.conn.Close())
	return errors.Join(errs...)
}

// SetReadDeadline sets the deadline for blocking reads. See
// net.Conn.SetReadDeadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Pending reports whether a complete message is already buffered, so
// that reading it will not block.
func (c *Conn) Pending() bool {
	if c.r.Buffered() < HeaderSize {
		return false
	}
	hdr, err := c.r.Peek(HeaderSize)
	if err != nil {
		return false
	}
	size := bin.Value[uint32]([bin.Size]byte(hdr[bin.Size:])) >> 16
	return c.r.Buffered() >= int(size)
}

// WriteMessage writes a single encoded message, passing fds as
// ancillary data.
func (c *Conn) WriteMessage(data []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	n, oobn, err := c.conn.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return err
	}
	if (n < len(data)) || (oobn < len(oob)) {
		return io.ErrShortWrite
	}
	return nil
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Conn) popFD() (int, bool) {
	return pop(&c.fds)
}

// fdReader reads from the socket, collecting any file descriptors that
// arrive as out-of-band data.
type fdReader struct {
	c *Conn
}

func (r fdReader) Read(buf []byte) (int, error) {
	n, oobn, _, _, err := r.c.conn.ReadMsgUnix(buf, r.c.oob)
	if n < 0 {
		// ReadMsgUnix reports -1 on failure, which bufio rejects.
		n = 0
	}
	if oobn > 0 {
		err = errors.Join(err, r.c.readFDs(r.c.oob[:oobn]))
	}
	if (n == 0) && (err == nil) && (len(buf) > 0) {
		return 0, io.EOF
	}
	return n, err
}
