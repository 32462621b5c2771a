package wl

import (
	"fmt"

	"deedles.dev/wlcore/shm"
)

// ShmPool is a block of shared memory from which buffers are created.
// The memory stays mapped for as long as the pool or any of its buffers
// is alive.
type ShmPool struct {
	proxy

	region *shm.Region
	size   int32
}

// Size returns the current size of the pool in bytes.
func (pool *ShmPool) Size() int32 {
	return pool.size
}

// Bytes returns the whole of the pool's memory. It is nil after the
// pool has been destroyed.
func (pool *ShmPool) Bytes() []byte {
	if pool.region == nil {
		return nil
	}
	return pool.region.Bytes()
}

// CreateBuffer creates a buffer that shows height rows of stride bytes
// each, starting at offset bytes into the pool. If the geometry doesn't
// fit in the pool, the returned error is an *InvalidGeometryError and
// no request is sent.
func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) (*Buffer, error) {
	if !pool.Valid() || (pool.region == nil) {
		return nil, &InvalidHandleError{Interface: ShmPoolInterface, ID: pool.id}
	}

	err := checkGeometry(offset, width, height, stride, format, pool.size)
	if err != nil {
		return nil, err
	}

	pool.region.Ref()
	buf := Buffer{
		region: pool.region,
		offset: offset,
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}
	pool.display.create(pool, &buf)

	msg := newRequest(pool, shmPoolCreateBuffer, buf.id, offset, width, height, stride, format)
	msg.WriteUint(buf.id)
	msg.WriteInt(offset)
	msg.WriteInt(width)
	msg.WriteInt(height)
	msg.WriteInt(stride)
	msg.WriteUint(uint32(format))
	pool.display.Enqueue(msg)

	return &buf, nil
}

func checkGeometry(offset, width, height, stride int32, format ShmFormat, size int32) error {
	gerr := InvalidGeometryError{
		Offset:   offset,
		Width:    width,
		Height:   height,
		Stride:   stride,
		Format:   format,
		PoolSize: size,
	}

	bpp := BytesPerPixel(format)
	switch {
	case bpp == 0:
		gerr.Reason = "unsupported format"
	case (width <= 0) || (height <= 0):
		gerr.Reason = "empty buffer"
	case offset < 0:
		gerr.Reason = "negative offset"
	case int64(stride) < int64(width)*int64(bpp):
		gerr.Reason = "stride too small"
	case int64(offset)+int64(stride)*int64(height) > int64(size):
		gerr.Reason = "out of pool bounds"
	default:
		return nil
	}

	return &gerr
}

// Resize grows the pool to size bytes. Pools can't shrink.
func (pool *ShmPool) Resize(size int32) error {
	if !pool.Valid() || (pool.region == nil) {
		return &InvalidHandleError{Interface: ShmPoolInterface, ID: pool.id}
	}
	if size < pool.size {
		return fmt.Errorf("shrink pool from %v to %v bytes", pool.size, size)
	}
	if size == pool.size {
		return nil
	}

	err := pool.region.Resize(int(size))
	if err != nil {
		return &AllocationError{Size: int64(size), Err: err}
	}
	pool.size = size

	msg := newRequest(pool, shmPoolResize, size)
	msg.WriteInt(size)
	pool.display.Enqueue(msg)

	return nil
}

// Destroy destroys the pool. Buffers created from it remain usable.
func (pool *ShmPool) Destroy() {
	pool.display.destroy(pool, newRequest(pool, shmPoolDestroy))
}

func (pool *ShmPool) Delete() {
	if pool.region != nil {
		pool.region.Release()
		pool.region = nil
	}
}
