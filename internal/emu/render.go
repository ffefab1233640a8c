package emu

import (
	"hash/crc32"
	"image"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// renderLine is the PPU line handler. The background is drawn as the flat
// BGP colour 0; over it the first opaque sprite pixel in queue order wins.
func (m *Machine) renderLine(ly int, q *ppu.SpriteQueue) {
	const stride = ppu.ScreenWidth * 4
	row := m.fb[ly*stride : (ly+1)*stride]
	bg := m.bus.PPU().BGColor()
	for x := 0; x < ppu.ScreenWidth; x++ {
		c := bg
		for i := 0; i < q.Len; i++ {
			col := x - q.X[i]
			if col < 0 || col >= 8 {
				continue
			}
			if ci := q.ColorIndex(i, col); ci != 0 {
				c = q.Palette[i][ci]
				break
			}
		}
		putARGB(row[x*4:], c)
	}
}

// putARGB stores a 0xAARRGGBB colour as RGBA bytes.
func putARGB(dst []byte, c uint32) {
	dst[0] = byte(c >> 16)
	dst[1] = byte(c >> 8)
	dst[2] = byte(c)
	dst[3] = byte(c >> 24)
}

// Framebuffer returns the live RGBA 160x144 frame.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Image returns a copy of the current frame.
func (m *Machine) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	copy(img.Pix, m.fb)
	return img
}

// FramebufferCRC is the IEEE CRC-32 of the current frame, for headless
// regression checks.
func (m *Machine) FramebufferCRC() uint32 { return crc32.ChecksumIEEE(m.fb) }
