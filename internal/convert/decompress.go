package convert

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"wallpaper-extract/internal/s3tc"
	"wallpaper-extract/internal/utils"
)

// maxLZ4Ratio is the largest expansion an LZ4 block can encode; a declared
// size beyond it cannot be produced by the payload.
const maxLZ4Ratio = 255

// MaxDecodedSize caps the RGBA8888 buffer a block-compressed mipmap may
// decode into (a 16384x16384 texture).
const MaxDecodedSize = 1 << 30

// DecompressMipmap brings a mipmap into its terminal form in place: LZ4 is
// undone first, then DXT blocks are decoded to RGBA8888. External images and
// raw pixel formats are left as they are. Calling it again is a no-op.
func DecompressMipmap(m *Mipmap) error {
	if m.LZ4 {
		utils.Debug("    Decompressing LZ4: %d -> %d", len(m.Data), m.DecompressedSize)
		out, err := decompressLZ4(m.Data, int(m.DecompressedSize))
		if err != nil {
			return err
		}
		m.Data = out
		m.LZ4 = false
	}

	if m.Format.IsImage() {
		return nil
	}

	switch m.Format {
	case MipmapCompressedDXT5, MipmapCompressedDXT3, MipmapCompressedDXT1:
		if err := checkDecodedSize(m.Width, m.Height); err != nil {
			return err
		}
		variant, _ := m.Format.variant()
		m.Data = s3tc.DecompressImage(int(m.Width), int(m.Height), m.Data, variant)
		m.Format = MipmapRGBA8888
		return nil
	case MipmapRGBA8888, MipmapR8, MipmapRG88, MipmapVideoMP4:
		return nil
	default:
		return fmt.Errorf("%w: mipmap format %s", ErrInvalidFormat, m.Format)
	}
}

func checkDecodedSize(w, h int32) error {
	if w < 0 || h < 0 || int64(w)*int64(h) > MaxDecodedSize/4 {
		return fmt.Errorf("%w: mipmap dimensions %dx%d", ErrInvalidFormat, w, h)
	}
	return nil
}

func decompressLZ4(src []byte, size int) ([]byte, error) {
	limit := len(src)*maxLZ4Ratio + 16
	if size < 0 || size > limit {
		return nil, fmt.Errorf("%w: declared %d bytes from %d compressed", ErrDecompressionSizeMismatch, size, len(src))
	}
	if size == 0 && len(src) == 0 {
		return []byte{}, nil
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		// the block may be valid but longer than declared
		if n, retryErr := lz4.UncompressBlock(src, make([]byte, limit)); retryErr == nil {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecompressionSizeMismatch, size, n)
		}
		return nil, fmt.Errorf("%w: %v", ErrLZ4Decode, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecompressionSizeMismatch, size, n)
	}
	return dst, nil
}
