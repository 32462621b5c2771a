// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is primarly intended for usage by protocol
// bindings.
package wire

import "deedles.dev/wlcore/internal/bin"

// HeaderSize is the size of a message header: the sender's object ID
// followed by the message size and opcode packed into one word.
const HeaderSize = 2 * bin.Size

// MaxMessageSize is the largest message that the 16-bit size field of
// the header can describe.
const MaxMessageSize = 1<<16 - 1

// MaxFDs is the maximum number of file descriptors sent along with a
// single write.
const MaxFDs = 28

// Object represents a Wayland protocol object.
type Object interface {
	// ID returns the object's current ID, or 0 if it has not been
	// registered yet.
	ID() uint32

	// SetID is called when the object is registered with a connection.
	SetID(id uint32)

	// Interface returns the protocol interface name of the object,
	// such as "wl_surface".
	Interface() string

	// MethodName returns the name of the incoming message with the
	// given opcode. It is used only for debugging output.
	MethodName(op uint16) string

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// Delete is called when the object's ID is no longer valid.
	Delete()
}

// NewID is an untyped new_id argument. The interface name and version
// are sent alongside the ID.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// padding returns the number of bytes required to pad n to a word
// boundary.
func padding(n uint32) uint32 {
	return (bin.Size - n%bin.Size) % bin.Size
}

func pop[T any, S ~[]T](s *S) (v T, ok bool) {
	if len(*s) == 0 {
		return v, false
	}

	v = (*s)[0]
	*s = (*s)[1:]
	return v, true
}
