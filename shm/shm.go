// Package shm provides helpers for dealing with shared memory.
package shm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/justincormack/go-memfd"
	"golang.org/x/sys/unix"
)

// Create returns an anonymous file suitable for sharing with another
// process. It prefers a memfd and falls back to an unlinked file in
// /dev/shm on systems that don't support them.
func Create() (*os.File, error) {
	mfd, err := memfd.Create()
	if err == nil {
		return mfd.File, nil
	}

	path := "/dev/shm/wlcore-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	file, ferr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}

	return file, os.Remove(path)
}

type Mmap []byte

func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})

	return mmap, errors.Join(err, cerr)
}

func (mmap Mmap) Unmap() error {
	if mmap == nil {
		return nil
	}
	return unix.Munmap(mmap)
}

// Region is a file-backed block of memory mapped into this process.
// It is reference counted so that several owners can share the mapping.
// The mapping and the file are released when the last reference is.
type Region struct {
	file *os.File
	mmap Mmap
	refs int
}

// NewRegion allocates and maps size bytes of shared memory. The
// returned Region has a single reference. On failure, nothing is
// leaked.
func NewRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %v", size)
	}

	file, err := Create()
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	err = file.Truncate(int64(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("truncate to %v: %w", size, err)
	}

	mmap, err := Map(file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &Region{
		file: file,
		mmap: mmap,
		refs: 1,
	}, nil
}

// File returns the file backing the region. It must not be closed by
// the caller.
func (r *Region) File() *os.File {
	return r.file
}

// Bytes returns the mapped memory. It is nil once the region has been
// released.
func (r *Region) Bytes() []byte {
	return r.mmap
}

func (r *Region) Len() int {
	return len(r.mmap)
}

// Ref adds a reference to the region.
func (r *Region) Ref() {
	if r.refs <= 0 {
		panic("shm: Ref of released region")
	}
	r.refs++
}

// Release drops a reference to the region, unmapping it and closing
// the file once none are left.
func (r *Region) Release() error {
	if r.refs <= 0 {
		return nil
	}

	r.refs--
	if r.refs > 0 {
		return nil
	}

	err := r.mmap.Unmap()
	r.mmap = nil
	return errors.Join(err, r.file.Close())
}

// Resize grows the region to size bytes. Slices previously returned by
// Bytes must not be used afterwards. Shrinking is not supported.
func (r *Region) Resize(size int) error {
	if r.refs <= 0 {
		return errors.New("resize of released region")
	}
	if size < len(r.mmap) {
		return fmt.Errorf("cannot shrink from %v to %v", len(r.mmap), size)
	}
	if size == len(r.mmap) {
		return nil
	}

	err := r.file.Truncate(int64(size))
	if err != nil {
		return fmt.Errorf("truncate to %v: %w", size, err)
	}

	mmap, err := Map(r.file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	err = r.mmap.Unmap()
	r.mmap = mmap
	return err
}
