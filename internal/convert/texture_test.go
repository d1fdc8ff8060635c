package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/pierrec/lz4/v4"
)

// texBuilder writes texture streams field by field.
type texBuilder struct {
	bytes.Buffer
}

func (b *texBuilder) magic(s string) *texBuilder {
	b.WriteString(s)
	b.WriteByte(0)
	return b
}

func (b *texBuilder) i32(vals ...int32) *texBuilder {
	for _, v := range vals {
		_ = binary.Write(&b.Buffer, binary.LittleEndian, v)
	}
	return b
}

func (b *texBuilder) f32(vals ...float32) *texBuilder {
	for _, v := range vals {
		_ = binary.Write(&b.Buffer, binary.LittleEndian, v)
	}
	return b
}

func (b *texBuilder) payload(p []byte) *texBuilder {
	b.i32(int32(len(p)))
	b.Write(p)
	return b
}

func (b *texBuilder) header(format TexFormat, flags TexFlags, w, h int32) *texBuilder {
	return b.magic(TextureMagic).magic(ImageMagic).i32(int32(format), int32(flags), w, h, w, h, 0)
}

func lz4Compress(t *testing.T, src []byte) []byte {
	t.Helper()

	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		t.Fatalf("CompressBlock: %v", err)
	}
	if n == 0 {
		t.Fatalf("test data is incompressible")
	}
	return dst[:n]
}

func TestParseV1DXT1(t *testing.T) {
	t.Parallel()

	var b texBuilder
	b.header(TexFormatDXT1, 0, 4, 4)
	b.magic("TEXB0001").i32(1) // one image
	b.i32(1)                   // one mipmap
	b.i32(4, 4).payload(make([]byte, 8))

	tex, err := ParseTextureBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseTextureBytes: %v", err)
	}
	if tex.Container.Version != ContainerV1 || tex.Container.ImageFormat != FIFUnknown {
		t.Fatalf("container = %+v", tex.Container)
	}

	m := tex.FirstMipmap()
	if m == nil {
		t.Fatalf("no mipmap")
	}
	if m.Format != MipmapRGBA8888 || m.LZ4 {
		t.Fatalf("mipmap format %s lz4 %v", m.Format, m.LZ4)
	}
	if len(m.Data) != 64 {
		t.Fatalf("len = %d, want 64", len(m.Data))
	}
	for i := 0; i < 16; i++ {
		if !bytes.Equal(m.Data[4*i:4*i+4], []byte{0, 0, 0, 255}) {
			t.Fatalf("pixel %d = %v", i, m.Data[4*i:4*i+4])
		}
	}
	if tex.Frames != nil {
		t.Fatalf("unexpected frame info")
	}
}

func TestParseRejectsHugeMipmap(t *testing.T) {
	t.Parallel()

	var b texBuilder
	b.header(TexFormatDXT1, 0, 4, 4)
	b.magic("TEXB0001").i32(1)
	b.i32(1)
	b.i32(0x7fffffff, 0x7fffffff).payload(make([]byte, 8))

	tex, err := ParseTextureBytes(b.Bytes())
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
	if tex != nil {
		t.Fatalf("partial texture returned")
	}
}

func TestParseHeaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		build   func(b *texBuilder)
		wantErr error
	}{
		{
			name: "invalid-format-before-container",
			build: func(b *texBuilder) {
				b.header(TexFormat(99), 0, 4, 4)
			},
			wantErr: ErrInvalidFormat,
		},
		{
			name: "bad-texture-magic",
			build: func(b *texBuilder) {
				b.magic("TEXV0004").magic(ImageMagic).i32(7, 0, 4, 4, 4, 4, 0)
			},
			wantErr: ErrUnknownMagic,
		},
		{
			name: "bad-image-magic",
			build: func(b *texBuilder) {
				b.magic(TextureMagic).magic("TEXI0002").i32(7, 0, 4, 4, 4, 4, 0)
			},
			wantErr: ErrUnknownMagic,
		},
		{
			name: "short-header",
			build: func(b *texBuilder) {
				b.magic(TextureMagic).magic(ImageMagic).i32(7, 0, 4)
			},
			wantErr: ErrTruncatedRead,
		},
		{
			name: "unknown-container",
			build: func(b *texBuilder) {
				b.header(TexFormatDXT1, 0, 4, 4).magic("TEXB0004").i32(0)
			},
			wantErr: ErrUnknownMagic,
		},
		{
			name: "image-format-out-of-range",
			build: func(b *texBuilder) {
				b.header(TexFormatDXT1, 0, 4, 4).magic("TEXB0003").i32(1, 35)
			},
			wantErr: ErrInvalidFormat,
		},
		{
			name: "short-payload",
			build: func(b *texBuilder) {
				b.header(TexFormatDXT1, 0, 4, 4).magic("TEXB0002").i32(1, 1)
				b.i32(4, 4, 0, 0, 8).Write(make([]byte, 5))
			},
			wantErr: ErrTruncatedRead,
		},
		{
			name: "negative-payload-length",
			build: func(b *texBuilder) {
				b.header(TexFormatDXT1, 0, 4, 4).magic("TEXB0001").i32(1, 1)
				b.i32(4, 4, -1)
			},
			wantErr: ErrTruncatedRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var b texBuilder
			tt.build(&b)

			tex, err := ParseTextureBytes(b.Bytes())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tex != nil {
				t.Fatalf("partial texture returned")
			}
		})
	}
}

func TestParseV2LZ4(t *testing.T) {
	t.Parallel()

	raw := bytes.Repeat([]byte{10, 20, 30, 40}, 16)
	packed := lz4Compress(t, raw)

	var b texBuilder
	b.header(TexFormatRGBA8888, 0, 4, 4)
	b.magic("TEXB0002").i32(1, 2)
	b.i32(4, 4, 1, int32(len(raw))).payload(packed)
	b.i32(2, 2, 0, 16).payload(raw[:16])

	tex, err := ParseTextureBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseTextureBytes: %v", err)
	}
	mips := tex.Container.Images[0].Mipmaps
	if len(mips) != 2 {
		t.Fatalf("mipmaps = %d, want 2", len(mips))
	}
	if !bytes.Equal(mips[0].Data, raw) || mips[0].LZ4 {
		t.Fatalf("level 0 not decompressed")
	}
	if mips[1].Width != 2 || !bytes.Equal(mips[1].Data, raw[:16]) {
		t.Fatalf("level 1 = %+v", mips[1])
	}
	for _, m := range mips {
		if m.Format != MipmapRGBA8888 {
			t.Fatalf("format = %s", m.Format)
		}
	}
}

func TestParseV3ImageFormat(t *testing.T) {
	t.Parallel()

	blob := []byte("\x89PNG not really")

	var b texBuilder
	b.header(TexFormatRGBA8888, 0, 4, 4)
	b.magic("TEXB0003").i32(1, int32(FIFPNG))
	b.i32(1).i32(4, 4, 0, int32(len(blob))).payload(blob)

	tex, err := ParseTextureBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseTextureBytes: %v", err)
	}
	m := tex.FirstMipmap()
	if m.Format != MipmapImagePNG || !m.Format.IsImage() {
		t.Fatalf("format = %s", m.Format)
	}
	if !bytes.Equal(m.Data, blob) {
		t.Fatalf("external image bytes changed")
	}
	if m.Format.Extension() != "png" {
		t.Fatalf("extension = %s", m.Format.Extension())
	}
}

func TestParseV3WithoutImageFormat(t *testing.T) {
	t.Parallel()

	block := make([]byte, 16)
	block[0], block[1] = 128, 128

	var b texBuilder
	b.header(TexFormatDXT5, 0, 4, 4)
	b.magic("TEXB0003").i32(1, int32(FIFUnknown))
	b.i32(1).i32(4, 4, 0, 16).payload(block)

	tex, err := ParseTextureBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseTextureBytes: %v", err)
	}
	m := tex.FirstMipmap()
	if m.Format != MipmapRGBA8888 || len(m.Data) != 64 {
		t.Fatalf("mipmap = %s, %d bytes", m.Format, len(m.Data))
	}
	if m.Data[3] != 128 {
		t.Fatalf("alpha = %d, want 128", m.Data[3])
	}
}

func TestParseFrameInfo(t *testing.T) {
	t.Parallel()

	body := func(b *texBuilder) {
		b.header(TexFormatRGBA8888, FlagIsGif|FlagClampUVs, 4, 4)
		b.magic("TEXB0001").i32(1, 1)
		b.i32(4, 4).payload(make([]byte, 64))
	}

	tests := []struct {
		name       string
		frames     func(b *texBuilder)
		wantLayout FrameLayout
		wantW      int32
		wantH      int32
	}{
		{
			name: "integer-layout",
			frames: func(b *texBuilder) {
				b.magic("TEXS0001").i32(2)
				b.i32(0).f32(0.5).i32(0, 0, 2, 0, 0, 3)
				b.i32(1).f32(0.5).i32(2, 0, 2, 0, 0, 3)
			},
			wantLayout: FrameLayoutV1,
			wantW:      2,
			wantH:      3,
		},
		{
			name: "float-layout",
			frames: func(b *texBuilder) {
				b.magic("TEXS0002").i32(2)
				b.i32(0).f32(0.5, 0, 0, 2, 0, 0, 3)
				b.i32(1).f32(0.5, 2, 0, 2, 0, 0, 3)
			},
			wantLayout: FrameLayoutV2,
			wantW:      2,
			wantH:      3,
		},
		{
			name: "float-layout-with-canvas",
			frames: func(b *texBuilder) {
				b.magic("TEXS0003").i32(2, 4, 4)
				b.i32(0).f32(0.5, 0, 0, 2, 0, 0, 3)
				b.i32(1).f32(0.5, 2, 0, 2, 0, 0, 3)
			},
			wantLayout: FrameLayoutV3,
			wantW:      4,
			wantH:      4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var b texBuilder
			body(&b)
			tt.frames(&b)

			tex, err := ParseTextureBytes(b.Bytes())
			if err != nil {
				t.Fatalf("ParseTextureBytes: %v", err)
			}
			if !tex.IsAnimated() || !tex.HasFlag(FlagClampUVs) || tex.IsVideo() {
				t.Fatalf("flags = %#x", uint32(tex.Header.Flags))
			}
			fc := tex.Frames
			if fc == nil || fc.Layout != tt.wantLayout || len(fc.Frames) != 2 {
				t.Fatalf("frames = %+v", fc)
			}
			if fc.Width != tt.wantW || fc.Height != tt.wantH {
				t.Fatalf("canvas = %dx%d, want %dx%d", fc.Width, fc.Height, tt.wantW, tt.wantH)
			}
			want := FrameInfo{ImageID: 1, Duration: 0.5, X: 2, Width: 2, Height: 3}
			if fc.Frames[1] != want {
				t.Fatalf("frame 1 = %+v, want %+v", fc.Frames[1], want)
			}
		})
	}
}

func TestParseFrameInfoUnknownMagic(t *testing.T) {
	t.Parallel()

	var b texBuilder
	b.header(TexFormatRGBA8888, FlagIsGif, 4, 4)
	b.magic("TEXB0001").i32(0)
	b.magic("TEXS0009").i32(0)

	if _, err := ParseTextureBytes(b.Bytes()); !errors.Is(err, ErrUnknownMagic) {
		t.Fatalf("err = %v, want ErrUnknownMagic", err)
	}
}

func TestParseUnsizedStream(t *testing.T) {
	t.Parallel()

	var b texBuilder
	b.header(TexFormatR8, 0, 4, 4)
	b.magic("TEXB0001").i32(1, 1)
	b.i32(4, 4).payload(bytes.Repeat([]byte{7}, 16))
	full := b.Bytes()

	tex, err := ParseTexture(iotest.OneByteReader(bytes.NewReader(full)))
	if err != nil {
		t.Fatalf("ParseTexture: %v", err)
	}
	if m := tex.FirstMipmap(); m.Format != MipmapR8 || len(m.Data) != 16 {
		t.Fatalf("mipmap = %s, %d bytes", m.Format, len(m.Data))
	}

	short := io.LimitReader(bytes.NewReader(full), int64(len(full)-3))
	if _, err := ParseTexture(short); !errors.Is(err, ErrTruncatedRead) {
		t.Fatalf("err = %v, want ErrTruncatedRead", err)
	}
}
