package shmimage

import "image/color"

// ARGB8888Color is a non-premultiplied color with 8 bits per channel,
// packed as 0xAARRGGBB.
type ARGB8888Color uint32

func NewARGB8888Color(r, g, b, a uint8) ARGB8888Color {
	return ARGB8888Color(pack(a, r, g, b))
}

func (c ARGB8888Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: red(c), G: green(c), B: blue(c), A: alpha(c)}.RGBA()
}

var ARGB8888Model color.Model = color.ModelFunc(argb8888Model)

func argb8888Model(c color.Color) color.Color {
	switch c := c.(type) {
	case ARGB8888Color:
		return c
	case XRGB8888Color:
		return ARGB8888Color(c | 0xFF000000)
	}

	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return NewARGB8888Color(n.R, n.G, n.B, n.A)
}

// XRGB8888Color is an opaque color with 8 bits per channel, packed as
// 0xXXRRGGBB. The top byte is ignored.
type XRGB8888Color uint32

func NewXRGB8888Color(r, g, b uint8) XRGB8888Color {
	return XRGB8888Color(pack(0xFF, r, g, b))
}

func (c XRGB8888Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: red(c), G: green(c), B: blue(c), A: 0xFF}.RGBA()
}

var XRGB8888Model color.Model = color.ModelFunc(xrgb8888Model)

// xrgb8888Model drops alpha without compositing against anything.
func xrgb8888Model(c color.Color) color.Color {
	switch c := c.(type) {
	case XRGB8888Color:
		return c
	case ARGB8888Color:
		return XRGB8888Color(c | 0xFF000000)
	}

	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return NewXRGB8888Color(n.R, n.G, n.B)
}

func pack(a, r, g, b uint8) uint32 {
	return (uint32(a) << 24) | (uint32(r) << 16) | (uint32(g) << 8) | uint32(b)
}

func red[C ~uint32](c C) uint8   { return uint8(c >> 16) }
func green[C ~uint32](c C) uint8 { return uint8(c >> 8) }
func blue[C ~uint32](c C) uint8  { return uint8(c) }
func alpha[C ~uint32](c C) uint8 { return uint8(c >> 24) }
