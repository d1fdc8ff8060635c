package export

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"slices"

	"wallpaper-extract/internal/convert"
	"wallpaper-extract/internal/utils"
)

// ErrEmptyFrame indicates a frame rectangle outside its source image.
var ErrEmptyFrame = errors.New("empty animation frame")

// Animate builds a looping GIF from the frame table of an animated texture.
// Frames are ordered by image id and the trailing blank frame the format
// appends is dropped. Every frame uses the duration of the first record.
func Animate(tex *convert.Texture) (*gif.GIF, error) {
	if tex.Frames == nil || len(tex.Frames.Frames) == 0 {
		return nil, fmt.Errorf("%w: no frame info", ErrNoImage)
	}

	frames := slices.Clone(tex.Frames.Frames)
	slices.SortStableFunc(frames, func(a, b convert.FrameInfo) int {
		return cmp.Compare(a.ImageID, b.ImageID)
	})
	if len(frames) > 1 {
		frames = frames[:len(frames)-1]
	}

	delay := int(math.Round(float64(tex.Frames.Frames[0].Duration) * 100))
	sources := make(map[int]image.Image)

	out := &gif.GIF{}
	for i, f := range frames {
		src, err := frameSource(tex, int(f.ImageID), sources)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		img, err := cutFrame(src, f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		pal := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pal, pal.Rect, img, image.Point{})
		out.Image = append(out.Image, pal)
		out.Delay = append(out.Delay, delay)

		b := pal.Bounds()
		out.Config.Width = max(out.Config.Width, b.Dx())
		out.Config.Height = max(out.Config.Height, b.Dy())
	}
	out.Config.ColorModel = color.Palette(palette.Plan9)
	return out, nil
}

// frameSource returns the first mipmap of the frame's image, falling back to
// the first image when the id is out of range.
func frameSource(tex *convert.Texture, id int, cache map[int]image.Image) (image.Image, error) {
	images := tex.Container.Images
	if id < 0 || id >= len(images) || len(images[id].Mipmaps) == 0 {
		id = 0
	}
	if img, ok := cache[id]; ok {
		return img, nil
	}
	if len(images) == 0 || len(images[id].Mipmaps) == 0 {
		return nil, ErrNoImage
	}
	img, err := MipmapImage(images[id].Mipmaps[0])
	if err != nil {
		return nil, err
	}
	cache[id] = img
	return img, nil
}

// frameGeometry resolves a frame's rectangle and the counter-clockwise
// quarter turns implied by the signs of its extent. A zero width or height
// falls back to the axis-swapped pair.
func frameGeometry(f convert.FrameInfo) (image.Rectangle, int) {
	w, h := f.Width, f.Height
	if w == 0 {
		w = f.HeightX
	}
	if h == 0 {
		h = f.WidthY
	}

	x := min(f.X, f.X+w)
	y := min(f.Y, f.Y+h)
	rect := image.Rect(int(x), int(y), int(abs32(w)+x), int(abs32(h)+y))

	var turns int
	switch {
	case w >= 0 && h >= 0:
		turns = 0
	case w >= 0:
		turns = 1
	case h >= 0:
		turns = 3
	default:
		turns = 2
	}
	return rect, turns
}

func cutFrame(src image.Image, f convert.FrameInfo) (*image.NRGBA, error) {
	rect, turns := frameGeometry(f)
	rect = rect.Add(src.Bounds().Min).Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %+v", ErrEmptyFrame, f)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	for ; turns > 0; turns-- {
		dst = rotateCCW(dst)
	}
	return dst, nil
}

func rotateCCW(src *image.NRGBA) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := src.PixOffset(x, y)
			d := dst.PixOffset(y, w-1-x)
			copy(dst.Pix[d:d+4], src.Pix[s:s+4])
		}
	}
	return dst
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func writeGIF(tex *convert.Texture, path string) error {
	anim, err := Animate(tex)
	if err != nil {
		return err
	}
	utils.Debug("    Animated: %d frames, %dx%d", len(anim.Image), anim.Config.Width, anim.Config.Height)

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return err
	}
	return utils.WriteFile(path, buf.Bytes())
}
