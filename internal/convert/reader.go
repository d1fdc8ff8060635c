package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// eagerAlloc bounds the buffer allocated up front for a length-prefixed field
// when the stream length is unknown; larger fields grow as bytes arrive.
const eagerAlloc = 1 << 20

// binReader is a forward-only little-endian cursor over one stream. It is
// owned by a single parse and must not be shared.
type binReader struct {
	r         io.Reader
	pos       int64
	remaining int64 // -1 when the stream length is unknown
}

func newBinReader(r io.Reader, size int64) *binReader {
	if size < 0 {
		if br, ok := r.(*bytes.Reader); ok {
			size = int64(br.Len())
		}
	}
	return &binReader{r: r, remaining: size}
}

func (b *binReader) advance(n int64) {
	b.pos += n
	if b.remaining >= 0 {
		b.remaining -= n
	}
}

func (b *binReader) truncated(what string, want, got int64) error {
	return fmt.Errorf("%w: %s at offset %d: want %d bytes, got %d", ErrTruncatedRead, what, b.pos, want, got)
}

func (b *binReader) readFull(n int64, what string) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %s at offset %d: negative length %d", ErrTruncatedRead, what, b.pos, n)
	}
	if b.remaining >= 0 && n > b.remaining {
		return nil, b.truncated(what, n, b.remaining)
	}

	if b.remaining >= 0 || n <= eagerAlloc {
		buf := make([]byte, n)
		got, err := io.ReadFull(b.r, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, b.truncated(what, n, int64(got))
			}
			return nil, fmt.Errorf("reading %s at offset %d: %w", what, b.pos, err)
		}
		b.advance(n)
		return buf, nil
	}

	var buf bytes.Buffer
	buf.Grow(eagerAlloc)
	got, err := io.CopyN(&buf, b.r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, b.truncated(what, n, got)
		}
		return nil, fmt.Errorf("reading %s at offset %d: %w", what, b.pos, err)
	}
	b.advance(n)
	return buf.Bytes(), nil
}

func (b *binReader) u32(what string) (uint32, error) {
	buf, err := b.readFull(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (b *binReader) i32(what string) (int32, error) {
	v, err := b.u32(what)
	return int32(v), err
}

func (b *binReader) f32(what string) (float32, error) {
	v, err := b.u32(what)
	return math.Float32frombits(v), err
}

// magic reads an 8-byte token followed by one pad byte.
func (b *binReader) magic(what string) (string, error) {
	buf, err := b.readFull(9, what)
	if err != nil {
		return "", err
	}
	return string(buf[:8]), nil
}

// blob reads a u32 length prefix and exactly that many bytes.
func (b *binReader) blob(what string) ([]byte, error) {
	n, err := b.u32(what + " length")
	if err != nil {
		return nil, err
	}
	return b.readFull(int64(n), what)
}

func (b *binReader) str(what string) (string, error) {
	buf, err := b.blob(what)
	return string(buf), err
}
