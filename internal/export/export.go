// Package export turns parsed textures into standard image files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"wallpaper-extract/internal/convert"
	"wallpaper-extract/internal/utils"
)

var (
	// ErrUnsupportedFormat indicates a mipmap that cannot be turned into pixels.
	ErrUnsupportedFormat = errors.New("unsupported mipmap format")
	// ErrPixelDataSize indicates raw pixel data shorter than its dimensions.
	ErrPixelDataSize = errors.New("pixel data size mismatch")
	// ErrUnknownOutput indicates an unknown output raster format.
	ErrUnknownOutput = errors.New("unknown output format")
	// ErrNoImage indicates a texture without any mipmap.
	ErrNoImage = errors.New("texture has no image")
)

// Format is an output raster encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutput, s)
}

// Options configures texture export. Nil Options selects PNG, first mipmap
// only, one worker.
type Options struct {
	Format     Format
	AllMipmaps bool
	Workers    int
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Format == "" {
		out.Format = FormatPNG
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	return out
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %q", ErrUnknownOutput, string(f))
}

// MipmapImage wraps a decoded mipmap as an image. External images are
// decoded with the registered standard decoders.
func MipmapImage(m *convert.Mipmap) (image.Image, error) {
	w, h := int(m.Width), int(m.Height)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrPixelDataSize, w, h)
	}
	rect := image.Rect(0, 0, w, h)

	switch {
	case m.Format.IsImage():
		img, _, err := image.Decode(bytes.NewReader(m.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, m.Format, err)
		}
		return img, nil
	case m.Format == convert.MipmapRGBA8888:
		if !hasPixels(m, 4) {
			return nil, fmt.Errorf("%w: %s %dx%d has %d bytes", ErrPixelDataSize, m.Format, w, h, len(m.Data))
		}
		return &image.NRGBA{Pix: m.Data[:w*h*4], Stride: w * 4, Rect: rect}, nil
	case m.Format == convert.MipmapR8:
		if !hasPixels(m, 1) {
			return nil, fmt.Errorf("%w: %s %dx%d has %d bytes", ErrPixelDataSize, m.Format, w, h, len(m.Data))
		}
		return &image.Gray{Pix: m.Data[:w*h], Stride: w, Rect: rect}, nil
	case m.Format == convert.MipmapRG88:
		if !hasPixels(m, 2) {
			return nil, fmt.Errorf("%w: %s %dx%d has %d bytes", ErrPixelDataSize, m.Format, w, h, len(m.Data))
		}
		// luminance in R, opacity in G
		img := image.NewNRGBA(rect)
		for i := 0; i < w*h; i++ {
			lum, alpha := m.Data[2*i], m.Data[2*i+1]
			img.Pix[4*i+0] = lum
			img.Pix[4*i+1] = lum
			img.Pix[4*i+2] = lum
			img.Pix[4*i+3] = alpha
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, m.Format)
}

// hasPixels reports whether m carries at least Width*Height*bpp bytes. The
// product of two non-negative int32 values times 4 fits in a uint64.
func hasPixels(m *convert.Mipmap, bpp uint64) bool {
	return uint64(m.Width)*uint64(m.Height)*bpp <= uint64(len(m.Data))
}

// cropTo limits img to the logical image size when that is smaller than the
// stored texture.
func cropTo(img image.Image, w, h int32) image.Image {
	b := img.Bounds()
	if w <= 0 || h <= 0 || (int(w) >= b.Dx() && int(h) >= b.Dy()) {
		return img
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return img
	}
	return sub.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+int(w), b.Min.Y+int(h)).Intersect(b))
}

// WriteTexture writes tex below dstBase (a path without extension) and
// returns the files it created. Animated textures become one GIF; external
// images are written verbatim; everything else is encoded in opts.Format.
func WriteTexture(tex *convert.Texture, dstBase string, opts *Options) ([]string, error) {
	o := opts.withDefaults()

	if tex.IsAnimated() && tex.Frames != nil && len(tex.Frames.Frames) > 0 {
		path := dstBase + ".gif"
		if err := writeGIF(tex, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	if tex.FirstMipmap() == nil {
		return nil, ErrNoImage
	}

	var written []string
	for i, img := range tex.Container.Images {
		for j, m := range img.Mipmaps {
			if !o.AllMipmaps && (i > 0 || j > 0) {
				return written, nil
			}
			path := dstBase
			if o.AllMipmaps {
				path = fmt.Sprintf("%s_%d_%d", dstBase, i, j)
			}
			full, err := writeMipmap(tex, m, path, o.Format, i == 0 && j == 0)
			if err != nil {
				return written, fmt.Errorf("image %d mipmap %d: %w", i, j, err)
			}
			written = append(written, full)
		}
	}
	return written, nil
}

func writeMipmap(tex *convert.Texture, m *convert.Mipmap, base string, f Format, crop bool) (string, error) {
	if m.Format.IsImage() || m.Format == convert.MipmapVideoMP4 {
		path := base + "." + m.Format.Extension()
		return path, utils.WriteFile(path, m.Data)
	}

	img, err := MipmapImage(m)
	if err != nil {
		return "", err
	}
	if crop {
		img = cropTo(img, tex.Header.ImageWidth, tex.Header.ImageHeight)
	}

	path := base + "." + string(f)
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return "", err
	}
	return path, utils.WriteFile(path, buf.Bytes())
}

// ConvertFile parses the texture at src and writes it below dstBase.
func ConvertFile(src, dstBase string, opts *Options) ([]string, error) {
	tex, err := convert.LoadTexture(src)
	if err != nil {
		return nil, err
	}
	files, err := WriteTexture(tex, dstBase, opts)
	if err != nil {
		for _, f := range files {
			_ = os.Remove(f)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(src), err)
	}
	utils.Debug("    Successfully decoded: %s", src)
	return files, nil
}
