// Package shmimage provides draw.Image implementations over the pixel
// layouts used by shared memory buffers. Pixels are stored as host-order
// 32-bit words.
package shmimage

import (
	"image"
	"image/color"
	"image/draw"

	"deedles.dev/wlcore/internal/bin"
)

// words is the storage shared by the 32-bit-per-pixel images.
type words struct {
	// Pix holds the image's pixels as host-order words. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

func (p *words) Bounds() image.Rectangle { return p.Rect }

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *words) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *words) word(x, y int) uint32 {
	if !(image.Point{x, y}.In(p.Rect)) {
		return 0
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+4 : i+4]
	return bin.Value[uint32](*(*[4]byte)(s))
}

func (p *words) setWord(x, y int, v uint32) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	data := bin.Bytes(v)
	copy(p.Pix[i:i+4:i+4], data[:])
}

func (p *words) sub(r image.Rectangle) (words, bool) {
	r = r.Intersect(p.Rect)
	// An empty intersection isn't necessarily inside p.Rect, so Pix[i:]
	// could panic without this check.
	if r.Empty() {
		return words{}, false
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return words{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}, true
}

// ARGB8888 is an in-memory image whose At method returns ARGB8888Color
// values.
type ARGB8888 words

// NewARGB8888 returns a new ARGB8888 image with the given bounds.
func NewARGB8888(r image.Rectangle) *ARGB8888 {
	return &ARGB8888{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (p *ARGB8888) Bounds() image.Rectangle { return p.Rect }

func (p *ARGB8888) ColorModel() color.Model { return ARGB8888Model }

func (p *ARGB8888) At(x, y int) color.Color {
	return p.ARGB8888At(x, y)
}

func (p *ARGB8888) ARGB8888At(x, y int) ARGB8888Color {
	return ARGB8888Color((*words)(p).word(x, y))
}

func (p *ARGB8888) PixOffset(x, y int) int {
	return (*words)(p).PixOffset(x, y)
}

func (p *ARGB8888) Set(x, y int, c color.Color) {
	c1 := ARGB8888Model.Convert(c).(ARGB8888Color)
	(*words)(p).setWord(x, y, uint32(c1))
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *ARGB8888) SubImage(r image.Rectangle) draw.Image {
	sub, _ := (*words)(p).sub(r)
	return (*ARGB8888)(&sub)
}

// XRGB8888 is an in-memory image whose At method returns XRGB8888Color
// values. The top byte of every pixel is ignored and always written as
// 0xFF.
type XRGB8888 words

// NewXRGB8888 returns a new XRGB8888 image with the given bounds.
func NewXRGB8888(r image.Rectangle) *XRGB8888 {
	return &XRGB8888{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (p *XRGB8888) Bounds() image.Rectangle { return p.Rect }

func (p *XRGB8888) ColorModel() color.Model { return XRGB8888Model }

func (p *XRGB8888) At(x, y int) color.Color {
	return p.XRGB8888At(x, y)
}

func (p *XRGB8888) XRGB8888At(x, y int) XRGB8888Color {
	return XRGB8888Color((*words)(p).word(x, y))
}

func (p *XRGB8888) PixOffset(x, y int) int {
	return (*words)(p).PixOffset(x, y)
}

func (p *XRGB8888) Set(x, y int, c color.Color) {
	c1 := XRGB8888Model.Convert(c).(XRGB8888Color)
	(*words)(p).setWord(x, y, uint32(c1)|0xFF000000)
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *XRGB8888) SubImage(r image.Rectangle) draw.Image {
	sub, _ := (*words)(p).sub(r)
	return (*XRGB8888)(&sub)
}

// Opaque reports that every pixel of the image is fully opaque.
func (p *XRGB8888) Opaque() bool {
	return true
}
