package wl

import (
	"errors"
	"fmt"
)

var (
	// ErrBuffersBusy is returned by Window.NextBuffer when every buffer
	// the window may have is owned by the compositor.
	ErrBuffersBusy = errors.New("all buffers are busy")

	// ErrBufferBusy is returned when trying to draw into a buffer that
	// the compositor hasn't released yet.
	ErrBufferBusy = errors.New("buffer is busy")
)

// ConnectionError is returned when a connection to the compositor
// can't be established.
type ConnectionError struct {
	Path string
	Err  error
}

func (err *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %q: %v", err.Path, err.Err)
}

func (err *ConnectionError) Unwrap() error {
	return err.Err
}

// DisconnectedError is returned once the connection to the compositor
// has been lost. Every later operation that needs the connection
// returns the same error.
type DisconnectedError struct {
	Err error
}

func (err *DisconnectedError) Error() string {
	return fmt.Sprintf("disconnected: %v", err.Err)
}

func (err *DisconnectedError) Unwrap() error {
	return err.Err
}

// AllocationError is returned when shared memory can't be allocated.
type AllocationError struct {
	Size int64
	Err  error
}

func (err *AllocationError) Error() string {
	return fmt.Sprintf("allocate %v bytes of shared memory: %v", err.Size, err.Err)
}

func (err *AllocationError) Unwrap() error {
	return err.Err
}

// InvalidGeometryError is returned when a buffer's layout doesn't fit
// in its pool or isn't valid for its format.
type InvalidGeometryError struct {
	Offset, Width, Height, Stride int32
	Format                        ShmFormat
	PoolSize                      int32
	Reason                        string
}

func (err *InvalidGeometryError) Error() string {
	return fmt.Sprintf(
		"invalid buffer geometry (%v): offset %v, %vx%v, stride %v, format %v, pool size %v",
		err.Reason,
		err.Offset,
		err.Width,
		err.Height,
		err.Stride,
		err.Format,
		err.PoolSize,
	)
}

// RoleError is returned when a surface can't be given a role because a
// global that the role requires hasn't been announced.
type RoleError struct {
	Interface string
}

func (err *RoleError) Error() string {
	return fmt.Sprintf("%v global not available", err.Interface)
}

// InvalidHandleError is reported when an object is used after it has
// been destroyed, after the global it was bound from was removed, or
// after its display was closed.
type InvalidHandleError struct {
	Interface string
	ID        uint32
}

func (err *InvalidHandleError) Error() string {
	return fmt.Sprintf("%v@%v is no longer valid", err.Interface, err.ID)
}

// ProtocolError is a fatal error sent by the compositor. The
// connection can't be used after one has been received.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (err *ProtocolError) Error() string {
	iface := err.Interface
	if iface == "" {
		iface = "unknown"
	}
	return fmt.Sprintf("protocol error on %v@%v: code %v: %v", iface, err.ObjectID, err.Code, err.Message)
}
