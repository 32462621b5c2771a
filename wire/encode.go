package wire

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"deedles.dev/wlcore/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	// Args is the original set of arguments passed to the function from
	// which this MessageBuilder was generated. It is included purely
	// for debugging purposes.
	Args []any

	sender Object
	op     uint16
	data   bytes.Buffer
	fds    []int
	err    error
}

// NewMessage starts a message from sender with the given opcode.
func NewMessage(sender Object, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
	}
}

func (mb *MessageBuilder) Sender() Object {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

// WriteObject writes the ID of v, or the null object if v is nil.
func (mb *MessageBuilder) WriteObject(v Object) {
	var id uint32
	if v != nil {
		id = v.ID()
	}
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	if mb.err != nil {
		return
	}

	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v) + 1)
	bin.Write(&mb.data, length)
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	mb.data.Write(make([]byte, padding(length)))
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v))
	bin.Write(&mb.data, length)
	mb.data.Write(v)
	mb.data.Write(make([]byte, padding(length)))
}

// WriteFile duplicates the descriptor of v so that it is sent even if
// v is closed before the message is built.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}

	sc, err := v.SyscallConn()
	if err != nil {
		mb.err = fmt.Errorf("file descriptor: %w", err)
		return
	}
	cerr := sc.Control(func(fd uintptr) {
		var nfd int
		nfd, err = unix.FcntlInt(fd, unix.F_DUPFD_CLOEXEC, 0)
		if err == nil {
			mb.fds = append(mb.fds, nfd)
		}
	})
	if err = errors.Join(cerr, err); err != nil {
		mb.err = fmt.Errorf("dup file descriptor: %w", err)
	}
}

// Bytes encodes the complete message, including its header.
func (mb *MessageBuilder) Bytes() ([]byte, error) {
	if mb.err != nil {
		return nil, mb.err
	}

	length := HeaderSize + mb.data.Len()
	if length > MaxMessageSize {
		return nil, fmt.Errorf("message %v too large: %v bytes", mb, length)
	}

	msg := make([]byte, 0, length)
	msg = bin.Append(msg, mb.sender.ID())
	msg = bin.Append(msg, (uint32(length)<<16)|uint32(mb.op))
	msg = append(msg, mb.data.Bytes()...)
	return msg, nil
}

// Build builds the message and sends it to c. The MessageBuilder
// should not be used again after this method is called.
func (mb *MessageBuilder) Build(c *Conn) error {
	defer mb.close()

	msg, err := mb.Bytes()
	if err != nil {
		return err
	}

	return c.WriteMessage(msg, mb.fds)
}

// Discard releases any resources held by a message that will not be
// sent.
func (mb *MessageBuilder) Discard() {
	mb.close()
}

func (mb *MessageBuilder) close() {
	for _, fd := range mb.fds {
		unix.Close(fd)
	}
	mb.fds = nil
}

func (mb *MessageBuilder) String() string {
	return fmt.Sprintf(
		"%v@%v.%v(%v)",
		mb.sender.Interface(),
		mb.sender.ID(),
		mb.Method,
		formatArgs(mb.Args),
	)
}
