package convert

import (
	"fmt"

	"wallpaper-extract/internal/utils"
)

// FrameLayout selects the wire encoding of frame records.
type FrameLayout int

const (
	// FrameLayoutV1 stores geometry as integers.
	FrameLayoutV1 FrameLayout = 1
	// FrameLayoutV2 stores geometry as floats.
	FrameLayoutV2 FrameLayout = 2
	// FrameLayoutV3 stores floats after an explicit canvas size.
	FrameLayoutV3 FrameLayout = 3
)

var frameMagics = map[string]FrameLayout{
	"TEXS0001": FrameLayoutV1,
	"TEXS0002": FrameLayoutV2,
	"TEXS0003": FrameLayoutV3,
}

// FrameInfo places one animation frame inside an image. WidthY and HeightX
// carry the axis-swapped extent used by rotated frames.
type FrameInfo struct {
	ImageID  int32
	Duration float32
	X        float32
	Y        float32
	Width    float32
	WidthY   float32
	HeightX  float32
	Height   float32
}

type FrameInfoContainer struct {
	Magic  string
	Layout FrameLayout
	Frames []FrameInfo
	Width  int32
	Height int32
}

func readFrameInfo(br *binReader) (*FrameInfoContainer, error) {
	magic, err := br.magic("frame info magic")
	if err != nil {
		return nil, err
	}
	layout, ok := frameMagics[magic]
	if !ok {
		return nil, fmt.Errorf("%w: frame info %q", ErrUnknownMagic, magic)
	}
	fc := &FrameInfoContainer{Magic: magic, Layout: layout}

	count, err := br.i32("frame count")
	if err != nil {
		return nil, err
	}

	if layout == FrameLayoutV3 {
		if fc.Width, err = br.i32("canvas width"); err != nil {
			return nil, err
		}
		if fc.Height, err = br.i32("canvas height"); err != nil {
			return nil, err
		}
	}

	for i := int32(0); i < count; i++ {
		frame, err := readFrame(br, layout)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		fc.Frames = append(fc.Frames, frame)
	}

	if (fc.Width == 0 || fc.Height == 0) && len(fc.Frames) > 0 {
		fc.Width = int32(fc.Frames[0].Width)
		fc.Height = int32(fc.Frames[0].Height)
	}
	utils.Debug("    Frames: %s, Count: %d, Canvas: %dx%d", magic, len(fc.Frames), fc.Width, fc.Height)
	return fc, nil
}

func readFrame(br *binReader, layout FrameLayout) (FrameInfo, error) {
	var f FrameInfo
	var err error

	if f.ImageID, err = br.i32("frame image id"); err != nil {
		return f, err
	}

	switch layout {
	case FrameLayoutV1:
		if f.Duration, err = br.f32("frame duration"); err != nil {
			return f, err
		}
		var geom [6]int32
		for i := range geom {
			if geom[i], err = br.i32("frame geometry"); err != nil {
				return f, err
			}
		}
		f.X, f.Y = float32(geom[0]), float32(geom[1])
		f.Width, f.WidthY = float32(geom[2]), float32(geom[3])
		f.HeightX, f.Height = float32(geom[4]), float32(geom[5])
	case FrameLayoutV2, FrameLayoutV3:
		var vals [7]float32
		for i := range vals {
			if vals[i], err = br.f32("frame geometry"); err != nil {
				return f, err
			}
		}
		f.Duration = vals[0]
		f.X, f.Y = vals[1], vals[2]
		f.Width, f.WidthY = vals[3], vals[4]
		f.HeightX, f.Height = vals[5], vals[6]
	default:
		return f, fmt.Errorf("%w: frame layout %d", ErrInvalidContainerVersion, int(layout))
	}
	return f, nil
}
