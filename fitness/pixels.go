// seehuhn.de/go/evolve - approximate images with translucent triangles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fitness

import (
	"image"
	"image/color"
	"image/draw"
)

var _ draw.Image = (*PixelBuffer)(nil)

// PixelBuffer is an image in packed 24-bit RGB format.
// Pixel (x, y) is stored in Pix[y*Width+x] as 0xRRGGBB.
//
// PixelBuffer implements [image.Image]; all pixels are opaque.
type PixelBuffer struct {
	Width, Height int
	Pix           []uint32
}

// NewPixelBuffer allocates a black w×h buffer.
func NewPixelBuffer(w, h int) *PixelBuffer {
	return &PixelBuffer{
		Width:  w,
		Height: h,
		Pix:    make([]uint32, w*h),
	}
}

// FromImage converts img to a PixelBuffer. Colours are composed onto
// black, so translucent pixels come out darker.
func FromImage(img image.Image) *PixelBuffer {
	r := img.Bounds()
	buf := NewPixelBuffer(r.Dx(), r.Dy())
	for y := range buf.Height {
		for x := range buf.Width {
			cr, cg, cb, _ := img.At(r.Min.X+x, r.Min.Y+y).RGBA()
			buf.Pix[y*buf.Width+x] = Pack(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8))
		}
	}
	return buf
}

// Pack combines three 8-bit channels into a packed pixel.
func Pack(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Unpack splits a packed pixel into its channels.
func Unpack(p uint32) (r, g, b uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p)
}

// Fill sets every pixel to p.
func (b *PixelBuffer) Fill(p uint32) {
	for i := range b.Pix {
		b.Pix[i] = p
	}
}

// CopyFrom copies the pixels of src, which must have the same size.
func (b *PixelBuffer) CopyFrom(src *PixelBuffer) error {
	if err := checkCompatible(b, src); err != nil {
		return err
	}
	copy(b.Pix, src.Pix)
	return nil
}

// Clone returns a copy of b.
func (b *PixelBuffer) Clone() *PixelBuffer {
	c := &PixelBuffer{Width: b.Width, Height: b.Height, Pix: make([]uint32, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// ToImage converts b to an RGBA image.
func (b *PixelBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, p := range b.Pix {
		r, g, bl := Unpack(p)
		img.Pix[4*i+0] = r
		img.Pix[4*i+1] = g
		img.Pix[4*i+2] = bl
		img.Pix[4*i+3] = 0xFF
	}
	return img
}

// ColorModel implements [image.Image].
func (b *PixelBuffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements [image.Image].
func (b *PixelBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements [image.Image].
func (b *PixelBuffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	r, g, bl := Unpack(b.Pix[y*b.Width+x])
	return color.RGBA{R: r, G: g, B: bl, A: 0xFF}
}

// Set implements [draw.Image]. The alpha channel of c is ignored.
func (b *PixelBuffer) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	cr, cg, cb, _ := c.RGBA()
	b.Pix[y*b.Width+x] = Pack(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8))
}
