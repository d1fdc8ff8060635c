// Package s3tc decodes S3TC (DXT1, DXT3, DXT5) block-compressed pixel data
// into tightly packed RGBA8888.
package s3tc

import (
	"encoding/binary"
	"fmt"
)

// Variant selects the block layout.
type Variant int

const (
	DXT1 Variant = iota + 1
	DXT3
	DXT5
)

// PixelsPerBlock is the number of pixels in one 4x4 tile.
const PixelsPerBlock = 16

func (v Variant) String() string {
	switch v {
	case DXT1:
		return "DXT1"
	case DXT3:
		return "DXT3"
	case DXT5:
		return "DXT5"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// BlockSize returns the compressed size of one 4x4 tile in bytes.
func (v Variant) BlockSize() int {
	switch v {
	case DXT1:
		return 8
	case DXT3, DXT5:
		return 16
	}
	return 0
}

// Block is one decoded tile: 16 RGBA pixels in row-major order.
type Block [PixelsPerBlock * 4]byte

// DecompressImage decodes width*height pixels from data. Tiles are consumed
// in row-major order; tiles for which data has run out stay zero. Pixels of
// edge tiles that fall outside the image are dropped.
func DecompressImage(width, height int, data []byte, v Variant) []byte {
	if width <= 0 || height <= 0 {
		return []byte{}
	}
	rgba := make([]byte, width*height*4)

	stride := v.BlockSize()
	if stride == 0 {
		return rgba
	}

	var tile Block
	src := 0
	for y := 0; y < height; y += 4 {
		for x := 0; x < width; x += 4 {
			if len(data)-src < stride {
				return rgba
			}
			DecompressBlock(&tile, data[src:src+stride], v)
			src += stride

			for py := 0; py < 4; py++ {
				sy := y + py
				if sy >= height {
					break
				}
				for px := 0; px < 4; px++ {
					sx := x + px
					if sx >= width {
						break
					}
					dst := 4 * (width*sy + sx)
					off := 4 * (4*py + px)
					copy(rgba[dst:dst+4], tile[off:off+4])
				}
			}
		}
	}
	return rgba
}

// DecompressBlock decodes one compressed tile into dst. block must hold at
// least v.BlockSize() bytes.
func DecompressBlock(dst *Block, block []byte, v Variant) {
	switch v {
	case DXT1:
		decompressColor(dst, block[:8], true)
	case DXT3:
		decompressColor(dst, block[8:16], false)
		decompressAlphaDXT3(dst, block[:8])
	case DXT5:
		decompressColor(dst, block[8:16], false)
		decompressAlphaDXT5(dst, block[:8])
	}
}

// unpack565 expands a packed RGB565 value to 8 bits per channel with bit
// replication and opaque alpha.
func unpack565(value uint16, out []byte) {
	r := byte((value >> 11) & 0x1f)
	g := byte((value >> 5) & 0x3f)
	b := byte(value & 0x1f)

	out[0] = (r << 3) | (r >> 2)
	out[1] = (g << 2) | (g >> 4)
	out[2] = (b << 3) | (b >> 2)
	out[3] = 255
}

// palette builds the four colour slots for a colour sub-block. The
// three-colour mode is chosen on the raw packed endpoints.
func palette(c0, c1 uint16, dxt1 bool) [16]byte {
	var codes [16]byte
	unpack565(c0, codes[0:4])
	unpack565(c1, codes[4:8])

	threeColor := dxt1 && c0 <= c1
	for i := 0; i < 3; i++ {
		c := int(codes[i])
		d := int(codes[4+i])
		if threeColor {
			codes[8+i] = byte((c + d) / 2)
			codes[12+i] = 0
		} else {
			codes[8+i] = byte((2*c + d) / 3)
			codes[12+i] = byte((c + 2*d) / 3)
		}
	}

	codes[11] = 255
	if threeColor {
		codes[15] = 0
	} else {
		codes[15] = 255
	}
	return codes
}

func decompressColor(dst *Block, block []byte, dxt1 bool) {
	c0 := binary.LittleEndian.Uint16(block[0:2])
	c1 := binary.LittleEndian.Uint16(block[2:4])
	codes := palette(c0, c1, dxt1)

	for row := 0; row < 4; row++ {
		packed := block[4+row]
		for col := 0; col < 4; col++ {
			idx := (packed >> (2 * col)) & 0x03
			pixel := 4 * (4*row + col)
			copy(dst[pixel:pixel+4], codes[4*idx:4*idx+4])
		}
	}
}

func decompressAlphaDXT3(dst *Block, block []byte) {
	for i := 0; i < 8; i++ {
		quant := block[i]
		lo := quant & 0x0f
		hi := quant >> 4

		dst[8*i+3] = lo | (lo << 4)
		dst[8*i+7] = hi | (hi << 4)
	}
}

// alphaCodebook returns the eight DXT5 alpha levels for endpoints a0, a1.
func alphaCodebook(a0, a1 byte) [8]byte {
	var codes [8]byte
	codes[0] = a0
	codes[1] = a1

	x, y := int(a0), int(a1)
	if a0 <= a1 {
		for i := 1; i < 5; i++ {
			codes[1+i] = byte(((5-i)*x + i*y) / 5)
		}
		codes[6] = 0
		codes[7] = 255
	} else {
		for i := 1; i < 7; i++ {
			codes[1+i] = byte(((7-i)*x + i*y) / 7)
		}
	}
	return codes
}

func decompressAlphaDXT5(dst *Block, block []byte) {
	codes := alphaCodebook(block[0], block[1])

	// 16 3-bit indices in two 24-bit little-endian groups
	pixel := 0
	for chunk := 0; chunk < 2; chunk++ {
		src := 2 + 3*chunk
		value := uint32(block[src]) | uint32(block[src+1])<<8 | uint32(block[src+2])<<16
		for j := 0; j < 8; j++ {
			idx := (value >> (3 * j)) & 0x07
			dst[4*pixel+3] = codes[idx]
			pixel++
		}
	}
}
