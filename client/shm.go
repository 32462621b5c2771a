package wl

import (
	"fmt"
	"math/bits"

	"deedles.dev/wlcore/shm"
)

// ShmFormat is a pixel format. The values other than
// ShmFormatArgb8888 and ShmFormatXrgb8888 are DRM fourcc codes.
type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0
	ShmFormatXrgb8888 ShmFormat = 1
	ShmFormatRgb565   ShmFormat = 0x36314752
	ShmFormatXbgr8888 ShmFormat = 0x34324258
	ShmFormatAbgr8888 ShmFormat = 0x34324241
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatArgb8888:
		return "argb8888"
	case ShmFormatXrgb8888:
		return "xrgb8888"
	case ShmFormatRgb565:
		return "rgb565"
	case ShmFormatXbgr8888:
		return "xbgr8888"
	case ShmFormatAbgr8888:
		return "abgr8888"
	}

	if f >= 0x20202020 {
		b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
		return fmt.Sprintf("fourcc(%q)", b[:])
	}
	return fmt.Sprintf("format(%v)", uint32(f))
}

// BytesPerPixel returns the size of a single pixel in the format, or 0
// if the format is not one that this package knows the layout of.
func BytesPerPixel(f ShmFormat) int32 {
	switch f {
	case ShmFormatArgb8888, ShmFormatXrgb8888, ShmFormatXbgr8888, ShmFormatAbgr8888:
		return 4
	case ShmFormatRgb565:
		return 2
	default:
		return 0
	}
}

// formatSetCeiling is the first format that a FormatSet can't hold.
const formatSetCeiling = 32

// FormatSet is the set of pixel formats supported by the compositor.
// Only formats below 32 are tracked. Others are accepted but ignored.
type FormatSet uint32

// Add records f as supported. It is meant to be used as the Format
// callback of a Shm.
func (s *FormatSet) Add(f ShmFormat) {
	if f < formatSetCeiling {
		*s |= 1 << f
	}
}

func (s FormatSet) Has(f ShmFormat) bool {
	return (f < formatSetCeiling) && (s&(1<<f) != 0)
}

// Formats returns the formats in the set in ascending order.
func (s FormatSet) Formats() []ShmFormat {
	formats := make([]ShmFormat, 0, bits.OnesCount32(uint32(s)))
	for rest := uint32(s); rest != 0; rest &= rest - 1 {
		formats = append(formats, ShmFormat(bits.TrailingZeros32(rest)))
	}
	return formats
}

// Shm creates shared memory pools.
type Shm struct {
	proxy
	Listener ShmListener
}

func IsShm(i Interface) bool {
	return i.Is(ShmInterface, 1)
}

// BindShm binds the wl_shm global with the given name.
func BindShm(registry *Registry, name, version uint32) *Shm {
	var s Shm
	registry.Bind(name, ShmInterface, clampVersion(version, ShmVersion), &s)

	return &s
}

// CreatePool allocates size bytes of shared memory and shares them with
// the compositor. If the memory can't be allocated, the returned error
// is an *AllocationError and no request is sent.
func (s *Shm) CreatePool(size int32) (*ShmPool, error) {
	if size <= 0 {
		return nil, &AllocationError{Size: int64(size), Err: fmt.Errorf("invalid size")}
	}
	if !s.Valid() {
		return nil, &InvalidHandleError{Interface: ShmInterface, ID: s.id}
	}

	region, err := shm.NewRegion(int(size))
	if err != nil {
		return nil, &AllocationError{Size: int64(size), Err: err}
	}

	pool := ShmPool{region: region, size: size}
	s.display.create(s, &pool)

	msg := newRequest(s, shmCreatePool, pool.id, region.File(), size)
	msg.WriteUint(pool.id)
	msg.WriteFile(region.File())
	msg.WriteInt(size)
	s.display.Enqueue(msg)

	return &pool, nil
}
