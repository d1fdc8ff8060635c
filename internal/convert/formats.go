package convert

import (
	"fmt"

	"wallpaper-extract/internal/s3tc"
)

// TexFormat is the pixel format tag stored in the texture header.
type TexFormat int32

const (
	TexFormatRGBA8888 TexFormat = 0
	TexFormatDXT5     TexFormat = 4
	TexFormatDXT3     TexFormat = 6
	TexFormatDXT1     TexFormat = 7
	TexFormatRG88     TexFormat = 8
	TexFormatR8       TexFormat = 9
)

func (f TexFormat) Valid() bool {
	switch f {
	case TexFormatRGBA8888, TexFormatDXT5, TexFormatDXT3, TexFormatDXT1, TexFormatRG88, TexFormatR8:
		return true
	}
	return false
}

func (f TexFormat) String() string {
	switch f {
	case TexFormatRGBA8888:
		return "RGBA8888"
	case TexFormatDXT5:
		return "DXT5"
	case TexFormatDXT3:
		return "DXT3"
	case TexFormatDXT1:
		return "DXT1"
	case TexFormatRG88:
		return "RG88"
	case TexFormatR8:
		return "R8"
	}
	return fmt.Sprintf("TexFormat(%d)", int32(f))
}

// TexFlags is the header flag bitset.
type TexFlags uint32

const (
	FlagNoInterpolation TexFlags = 1 << 0
	FlagClampUVs        TexFlags = 1 << 1
	FlagIsGif           TexFlags = 1 << 2
	FlagIsVideoTexture  TexFlags = 1 << 5
)

// FreeImageFormat is the external image format code carried by version 3
// image containers.
type FreeImageFormat int32

const (
	FIFUnknown FreeImageFormat = -1
	FIFBMP     FreeImageFormat = 0
	FIFICO     FreeImageFormat = 1
	FIFJPEG    FreeImageFormat = 2
	FIFJNG     FreeImageFormat = 3
	FIFKOALA   FreeImageFormat = 4
	FIFLBM     FreeImageFormat = 5
	FIFIFF     FreeImageFormat = 5
	FIFMNG     FreeImageFormat = 6
	FIFPBM     FreeImageFormat = 7
	FIFPBMRAW  FreeImageFormat = 8
	FIFPCD     FreeImageFormat = 9
	FIFPCX     FreeImageFormat = 10
	FIFPGM     FreeImageFormat = 11
	FIFPGMRAW  FreeImageFormat = 12
	FIFPNG     FreeImageFormat = 13
	FIFPPM     FreeImageFormat = 14
	FIFPPMRAW  FreeImageFormat = 15
	FIFRAS     FreeImageFormat = 16
	FIFTARGA   FreeImageFormat = 17
	FIFTIFF    FreeImageFormat = 18
	FIFWBMP    FreeImageFormat = 19
	FIFPSD     FreeImageFormat = 20
	FIFCUT     FreeImageFormat = 21
	FIFXBM     FreeImageFormat = 22
	FIFXPM     FreeImageFormat = 23
	FIFDDS     FreeImageFormat = 24
	FIFGIF     FreeImageFormat = 25
	FIFHDR     FreeImageFormat = 26
	FIFFAXG3   FreeImageFormat = 27
	FIFSGI     FreeImageFormat = 28
	FIFEXR     FreeImageFormat = 29
	FIFJ2K     FreeImageFormat = 30
	FIFJP2     FreeImageFormat = 31
	FIFPFM     FreeImageFormat = 32
	FIFPICT    FreeImageFormat = 33
	FIFRAW     FreeImageFormat = 34
)

func (f FreeImageFormat) Valid() bool {
	return f >= FIFUnknown && f <= FIFRAW
}

// MipmapFormat is the resolved format of a mipmap payload: block-compressed,
// raw pixels, or an encoded external image.
type MipmapFormat int

const (
	MipmapInvalid MipmapFormat = iota
	MipmapRGBA8888
	MipmapR8
	MipmapRG88
	MipmapCompressedDXT5
	MipmapCompressedDXT3
	MipmapCompressedDXT1
	MipmapVideoMP4
)

// External image tags start at 1000.
const (
	MipmapImageBMP MipmapFormat = 1000 + iota
	MipmapImageICO
	MipmapImageJPEG
	MipmapImageJNG
	MipmapImageKOALA
	MipmapImageLBM
	MipmapImageIFF
	MipmapImageMNG
	MipmapImagePBM
	MipmapImagePBMRAW
	MipmapImagePCD
	MipmapImagePCX
	MipmapImagePGM
	MipmapImagePGMRAW
	MipmapImagePNG
	MipmapImagePPM
	MipmapImagePPMRAW
	MipmapImageRAS
	MipmapImageTARGA
	MipmapImageTIFF
	MipmapImageWBMP
	MipmapImagePSD
	MipmapImageCUT
	MipmapImageXBM
	MipmapImageXPM
	MipmapImageDDS
	MipmapImageGIF
	MipmapImageHDR
	MipmapImageFAXG3
	MipmapImageSGI
	MipmapImageEXR
	MipmapImageJ2K
	MipmapImageJP2
	MipmapImagePFM
	MipmapImagePICT
	MipmapImageRAW
)

// IsImage reports whether the payload is an encoded external image.
func (f MipmapFormat) IsImage() bool {
	return f >= MipmapImageBMP && f <= MipmapImageRAW
}

// IsRaw reports whether the payload is uncompressed pixels.
func (f MipmapFormat) IsRaw() bool {
	return f >= MipmapRGBA8888 && f <= MipmapRG88
}

// IsBlockCompressed reports whether the payload still holds DXT blocks.
func (f MipmapFormat) IsBlockCompressed() bool {
	_, ok := f.variant()
	return ok
}

func (f MipmapFormat) variant() (s3tc.Variant, bool) {
	switch f {
	case MipmapCompressedDXT5:
		return s3tc.DXT5, true
	case MipmapCompressedDXT3:
		return s3tc.DXT3, true
	case MipmapCompressedDXT1:
		return s3tc.DXT1, true
	}
	return 0, false
}

func (f MipmapFormat) String() string {
	switch f {
	case MipmapInvalid:
		return "Invalid"
	case MipmapRGBA8888:
		return "RGBA8888"
	case MipmapR8:
		return "R8"
	case MipmapRG88:
		return "RG88"
	case MipmapCompressedDXT5:
		return "CompressedDXT5"
	case MipmapCompressedDXT3:
		return "CompressedDXT3"
	case MipmapCompressedDXT1:
		return "CompressedDXT1"
	case MipmapVideoMP4:
		return "VideoMP4"
	}
	if f.IsImage() {
		return "Image" + imageNames[f-MipmapImageBMP]
	}
	return fmt.Sprintf("MipmapFormat(%d)", int(f))
}

var imageNames = [...]string{
	"BMP", "ICO", "JPEG", "JNG", "KOALA", "LBM", "IFF", "MNG", "PBM", "PBMRAW",
	"PCD", "PCX", "PGM", "PGMRAW", "PNG", "PPM", "PPMRAW", "RAS", "TARGA", "TIFF",
	"WBMP", "PSD", "CUT", "XBM", "XPM", "DDS", "GIF", "HDR", "FAXG3", "SGI",
	"EXR", "J2K", "JP2", "PFM", "PICT", "RAW",
}

var imageExtensions = [...]string{
	"bmp", "ico", "jpg", "jng", "koa", "lbm", "iff", "mng", "pbm", "pbm",
	"pcd", "pcx", "pgm", "pgm", "png", "ppm", "ppm", "ras", "tga", "tif",
	"wbmp", "psd", "cut", "xbm", "xpm", "dds", "gif", "hdr", "g3", "sgi",
	"exr", "j2k", "jp2", "pfm", "pict", "raw",
}

// Extension returns the conventional file extension for the payload.
// Raw and block formats map to png, the format they are exported as.
func (f MipmapFormat) Extension() string {
	switch {
	case f.IsImage():
		return imageExtensions[f-MipmapImageBMP]
	case f == MipmapVideoMP4:
		return "mp4"
	}
	return "png"
}

// imageFormatToMipmap maps an explicit external image format to its
// mipmap tag. FreeImage aliases LBM and IFF to one code; it maps to LBM.
func imageFormatToMipmap(f FreeImageFormat) (MipmapFormat, error) {
	switch {
	case f == FIFUnknown || !f.Valid():
		return MipmapInvalid, fmt.Errorf("%w: no mipmap format for image format %d", ErrInvalidFormat, int32(f))
	case f <= FIFLBM:
		return MipmapImageBMP + MipmapFormat(f), nil
	default:
		// codes after the LBM/IFF alias are shifted by one
		return MipmapImageBMP + MipmapFormat(f) + 1, nil
	}
}

// texFormatToMipmap maps the header pixel format to the mipmap tag used when
// no external image format is present.
func texFormatToMipmap(f TexFormat) (MipmapFormat, error) {
	switch f {
	case TexFormatRGBA8888:
		return MipmapRGBA8888, nil
	case TexFormatDXT5:
		return MipmapCompressedDXT5, nil
	case TexFormatDXT3:
		return MipmapCompressedDXT3, nil
	case TexFormatDXT1:
		return MipmapCompressedDXT1, nil
	case TexFormatR8:
		return MipmapR8, nil
	case TexFormatRG88:
		return MipmapRG88, nil
	}
	return MipmapInvalid, fmt.Errorf("%w: texture format %s", ErrInvalidFormat, f)
}

// resolveMipmapFormat picks the format shared by every mipmap of an image.
func resolveMipmapFormat(image FreeImageFormat, tex TexFormat) (MipmapFormat, error) {
	if image != FIFUnknown {
		return imageFormatToMipmap(image)
	}
	return texFormatToMipmap(tex)
}
