package wl

import (
	"image"
	"image/draw"

	"deedles.dev/wlcore/shm"
	"deedles.dev/wlcore/shm/shmimage"
	"deedles.dev/ximage/format"
)

// BufferState is the ownership state of a Buffer.
type BufferState int

const (
	// BufferFree buffers may be drawn into and attached.
	BufferFree BufferState = iota

	// BufferBusy buffers have been committed and are owned by the
	// compositor until it releases them.
	BufferBusy

	// BufferDestroyed buffers can no longer be used.
	BufferDestroyed
)

func (s BufferState) String() string {
	switch s {
	case BufferFree:
		return "free"
	case BufferBusy:
		return "busy"
	case BufferDestroyed:
		return "destroyed"
	default:
		return "BufferState(?)"
	}
}

// Buffer is a view of part of a shared memory pool that can be attached
// to a surface.
type Buffer struct {
	proxy
	Listener BufferListener

	region *shm.Region
	state  BufferState

	offset, width, height, stride int32
	format                        ShmFormat
}

func (buf *Buffer) State() BufferState {
	return buf.state
}

func (buf *Buffer) Width() int32 {
	return buf.width
}

func (buf *Buffer) Height() int32 {
	return buf.height
}

func (buf *Buffer) Stride() int32 {
	return buf.stride
}

func (buf *Buffer) Format() ShmFormat {
	return buf.format
}

func (buf *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(buf.width), int(buf.height))
}

// Bytes returns the memory that backs the buffer's pixels, regardless
// of the buffer's state. It is nil once the buffer has been destroyed.
func (buf *Buffer) Bytes() []byte {
	if buf.region == nil {
		return nil
	}

	start := int(buf.offset)
	end := start + int(buf.stride)*int(buf.height)
	return buf.region.Bytes()[start:end:end]
}

// Image returns a view of the buffer's pixels that can be drawn into.
// It fails with ErrBufferBusy if the compositor currently owns the
// buffer.
func (buf *Buffer) Image() (draw.Image, error) {
	switch buf.state {
	case BufferBusy:
		return nil, ErrBufferBusy
	case BufferDestroyed:
		return nil, &InvalidHandleError{Interface: BufferInterface, ID: buf.id}
	}

	pix := buf.Bytes()
	switch buf.format {
	case ShmFormatXrgb8888:
		return &shmimage.XRGB8888{
			Pix:    pix,
			Stride: int(buf.stride),
			Rect:   buf.Bounds(),
		}, nil

	case ShmFormatArgb8888:
		if buf.stride == buf.width*4 {
			return &format.Image{
				Format: format.ARGB8888,
				Rect:   buf.Bounds(),
				Pix:    pix,
			}, nil
		}
		return &shmimage.ARGB8888{
			Pix:    pix,
			Stride: int(buf.stride),
			Rect:   buf.Bounds(),
		}, nil

	default:
		return nil, &InvalidGeometryError{
			Offset:   buf.offset,
			Width:    buf.width,
			Height:   buf.height,
			Stride:   buf.stride,
			Format:   buf.format,
			PoolSize: int32(buf.region.Len()),
			Reason:   "no image view for format",
		}
	}
}

func (buf *Buffer) acquire() {
	if buf.state == BufferFree {
		buf.state = BufferBusy
	}
}

func (buf *Buffer) release() {
	if buf.state == BufferBusy {
		buf.state = BufferFree
	}
}

// Destroy destroys the buffer. If it is busy, the compositor may still
// read from the memory until the destruction is processed.
func (buf *Buffer) Destroy() {
	buf.display.destroy(buf, newRequest(buf, bufferDestroy))
}

func (buf *Buffer) Delete() {
	buf.state = BufferDestroyed
	if buf.region != nil {
		buf.region.Release()
		buf.region = nil
	}
}
