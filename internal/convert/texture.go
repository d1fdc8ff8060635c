package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"wallpaper-extract/internal/utils"
)

const (
	TextureMagic = "TEXV0005"
	ImageMagic   = "TEXI0001"
)

// ContainerVersion selects the mipmap record layout of an image container.
type ContainerVersion int

const (
	ContainerV1 ContainerVersion = 1
	ContainerV2 ContainerVersion = 2
	ContainerV3 ContainerVersion = 3
)

var containerMagics = map[string]ContainerVersion{
	"TEXB0001": ContainerV1,
	"TEXB0002": ContainerV2,
	"TEXB0003": ContainerV3,
}

type TextureHeader struct {
	Magic1        string
	Magic2        string
	Format        TexFormat
	Flags         TexFlags
	TextureWidth  int32
	TextureHeight int32
	ImageWidth    int32
	ImageHeight   int32
	Reserved      int32
}

// Mipmap is one level of an image pyramid. Data starts as stored in the
// stream and is replaced once by DecompressMipmap.
type Mipmap struct {
	Width            int32
	Height           int32
	Data             []byte
	LZ4              bool
	DecompressedSize int32
	Format           MipmapFormat
}

type Image struct {
	Mipmaps []*Mipmap
}

type ImageContainer struct {
	Magic       string
	Version     ContainerVersion
	ImageFormat FreeImageFormat
	Images      []Image
}

// Texture is a fully parsed texture stream. Frames is nil unless the
// header marks the texture as animated.
type Texture struct {
	Header    TextureHeader
	Container ImageContainer
	Frames    *FrameInfoContainer
}

func (t *Texture) HasFlag(flag TexFlags) bool {
	return t.Header.Flags&flag == flag
}

func (t *Texture) IsAnimated() bool { return t.HasFlag(FlagIsGif) }
func (t *Texture) IsVideo() bool    { return t.HasFlag(FlagIsVideoTexture) }

// FirstMipmap returns the largest level of the first image, or nil.
func (t *Texture) FirstMipmap() *Mipmap {
	if len(t.Container.Images) == 0 || len(t.Container.Images[0].Mipmaps) == 0 {
		return nil
	}
	return t.Container.Images[0].Mipmaps[0]
}

// ParseTexture reads a complete texture stream. Every mipmap is decompressed
// as it is read. Any error aborts the parse; no partial texture is returned.
func ParseTexture(r io.Reader) (*Texture, error) {
	return parseTexture(newBinReader(r, -1))
}

// ParseTextureBytes parses a texture held in memory.
func ParseTextureBytes(data []byte) (*Texture, error) {
	return ParseTexture(bytes.NewReader(data))
}

// LoadTexture parses the texture file at path.
func LoadTexture(path string) (*Texture, error) {
	utils.Debug("Decoding texture: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tex, err := ParseTextureBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tex, nil
}

func parseTexture(br *binReader) (*Texture, error) {
	tex := &Texture{}

	header, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	tex.Header = header
	utils.Debug("    Format: %s, Flags: %#x, Texture: %dx%d, Image: %dx%d",
		header.Format, uint32(header.Flags), header.TextureWidth, header.TextureHeight, header.ImageWidth, header.ImageHeight)

	container, err := readImageContainer(br, header.Format)
	if err != nil {
		return nil, err
	}
	tex.Container = container

	if tex.IsAnimated() {
		frames, err := readFrameInfo(br)
		if err != nil {
			return nil, err
		}
		tex.Frames = frames
	}
	return tex, nil
}

func readHeader(br *binReader) (TextureHeader, error) {
	var h TextureHeader
	var err error

	if h.Magic1, err = br.magic("texture magic"); err != nil {
		return h, err
	}
	if h.Magic2, err = br.magic("image magic"); err != nil {
		return h, err
	}
	if h.Magic1 != TextureMagic {
		return h, fmt.Errorf("%w: texture magic %q", ErrUnknownMagic, h.Magic1)
	}
	if h.Magic2 != ImageMagic {
		return h, fmt.Errorf("%w: image magic %q", ErrUnknownMagic, h.Magic2)
	}

	var fields [7]int32
	names := [7]string{"format", "flags", "texture width", "texture height", "image width", "image height", "reserved"}
	for i := range fields {
		if fields[i], err = br.i32(names[i]); err != nil {
			return h, err
		}
	}
	h.Format = TexFormat(fields[0])
	h.Flags = TexFlags(uint32(fields[1]))
	h.TextureWidth = fields[2]
	h.TextureHeight = fields[3]
	h.ImageWidth = fields[4]
	h.ImageHeight = fields[5]
	h.Reserved = fields[6]

	if !h.Format.Valid() {
		return h, fmt.Errorf("%w: texture format %d", ErrInvalidFormat, int32(h.Format))
	}
	return h, nil
}

func readImageContainer(br *binReader, texFormat TexFormat) (ImageContainer, error) {
	c := ImageContainer{ImageFormat: FIFUnknown}

	magic, err := br.magic("image container magic")
	if err != nil {
		return c, err
	}
	c.Magic = magic

	version, ok := containerMagics[magic]
	if !ok {
		return c, fmt.Errorf("%w: image container %q", ErrUnknownMagic, magic)
	}
	c.Version = version

	count, err := br.i32("image count")
	if err != nil {
		return c, err
	}

	if version == ContainerV3 {
		code, err := br.i32("image format")
		if err != nil {
			return c, err
		}
		c.ImageFormat = FreeImageFormat(code)
		if !c.ImageFormat.Valid() {
			return c, fmt.Errorf("%w: image format %d", ErrInvalidFormat, code)
		}
	}
	utils.Debug("    Container: %s, Images: %d, Image format: %d", magic, count, int32(c.ImageFormat))

	for i := int32(0); i < count; i++ {
		img, err := readImage(br, c.Version, c.ImageFormat, texFormat)
		if err != nil {
			return c, fmt.Errorf("image %d: %w", i, err)
		}
		c.Images = append(c.Images, img)
	}
	return c, nil
}

func readImage(br *binReader, version ContainerVersion, imageFormat FreeImageFormat, texFormat TexFormat) (Image, error) {
	var img Image

	count, err := br.i32("mipmap count")
	if err != nil {
		return img, err
	}

	format, err := resolveMipmapFormat(imageFormat, texFormat)
	if err != nil {
		return img, err
	}

	for j := int32(0); j < count; j++ {
		m, err := readMipmap(br, version)
		if err != nil {
			return img, fmt.Errorf("mipmap %d: %w", j, err)
		}
		m.Format = format
		if err := DecompressMipmap(m); err != nil {
			return img, fmt.Errorf("mipmap %d: %w", j, err)
		}
		img.Mipmaps = append(img.Mipmaps, m)
	}
	return img, nil
}

func readMipmap(br *binReader, version ContainerVersion) (*Mipmap, error) {
	m := &Mipmap{}
	var err error

	if m.Width, err = br.i32("mipmap width"); err != nil {
		return nil, err
	}
	if m.Height, err = br.i32("mipmap height"); err != nil {
		return nil, err
	}

	switch version {
	case ContainerV1:
	case ContainerV2, ContainerV3:
		flag, err := br.i32("LZ4 flag")
		if err != nil {
			return nil, err
		}
		m.LZ4 = flag == 1
		if m.DecompressedSize, err = br.i32("decompressed size"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidContainerVersion, int(version))
	}

	size, err := br.i32("mipmap payload length")
	if err != nil {
		return nil, err
	}
	if m.Data, err = br.readFull(int64(size), "mipmap payload"); err != nil {
		return nil, err
	}
	return m, nil
}
