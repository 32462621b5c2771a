package shmimage

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"deedles.dev/wlcore/internal/bin"
	"github.com/stretchr/testify/assert"
)

func TestXRGB8888(t *testing.T) {
	img := NewXRGB8888(image.Rect(0, 0, 4, 3))
	assert.True(t, img.Opaque())

	img.Set(1, 2, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80})
	i := img.PixOffset(1, 2)
	assert.Equal(t, uint32(0xFF102030), bin.Value[uint32]([4]byte(img.Pix[i:i+4])))
	assert.Equal(t, XRGB8888Color(0xFF102030), img.XRGB8888At(1, 2))

	r, g, b, a := img.At(1, 2).RGBA()
	assert.Equal(t, [4]uint32{0x1010, 0x2020, 0x3030, 0xFFFF}, [4]uint32{r, g, b, a})

	img.Set(10, 10, color.White)
	assert.Equal(t, XRGB8888Color(0), img.XRGB8888At(10, 10))
}

func TestARGB8888(t *testing.T) {
	img := NewARGB8888(image.Rect(0, 0, 2, 2))

	img.Set(0, 1, color.NRGBA{R: 0xFF, A: 0x80})
	assert.Equal(t, NewARGB8888Color(0xFF, 0, 0, 0x80), img.ARGB8888At(0, 1))

	img.Set(1, 1, color.Transparent)
	assert.Equal(t, ARGB8888Color(0), img.ARGB8888At(1, 1))

	_, _, _, a := img.At(0, 1).RGBA()
	assert.Equal(t, uint32(0x8080), a)
}

func TestDraw(t *testing.T) {
	img := NewXRGB8888(image.Rect(0, 0, 8, 8))
	draw.Draw(img, image.Rect(2, 2, 6, 6), image.NewUniform(color.RGBA{B: 0xFF, A: 0xFF}), image.Point{}, draw.Src)

	assert.Equal(t, NewXRGB8888Color(0, 0, 0xFF), img.XRGB8888At(3, 3))
	assert.Equal(t, XRGB8888Color(0), img.XRGB8888At(1, 1))

	sub := img.SubImage(image.Rect(4, 4, 10, 10)).(*XRGB8888)
	assert.Equal(t, image.Rect(4, 4, 8, 8), sub.Bounds())
	assert.Equal(t, NewXRGB8888Color(0, 0, 0xFF), sub.XRGB8888At(5, 5))

	empty := img.SubImage(image.Rect(20, 20, 30, 30))
	assert.True(t, empty.Bounds().Empty())
}

func TestColorModels(t *testing.T) {
	x := XRGB8888Model.Convert(NewARGB8888Color(1, 2, 3, 0)).(XRGB8888Color)
	assert.Equal(t, NewXRGB8888Color(1, 2, 3), x)

	a := ARGB8888Model.Convert(NewXRGB8888Color(4, 5, 6)).(ARGB8888Color)
	assert.Equal(t, NewARGB8888Color(4, 5, 6, 0xFF), a)
}
