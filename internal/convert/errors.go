package convert

import "errors"

var (
	// ErrUnknownMagic indicates a header, container or frame-info token mismatch.
	ErrUnknownMagic = errors.New("unknown magic")
	// ErrInvalidFormat indicates an enum value outside its valid range.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidContainerVersion indicates a mipmap record version outside 1..3.
	ErrInvalidContainerVersion = errors.New("invalid container version")
	// ErrTruncatedRead indicates fewer bytes were available than declared.
	ErrTruncatedRead = errors.New("truncated read")
	// ErrDecompressionSizeMismatch indicates the LZ4 output length differs from the declared size.
	ErrDecompressionSizeMismatch = errors.New("decompression size mismatch")
	// ErrLZ4Decode indicates the LZ4 block could not be decoded.
	ErrLZ4Decode = errors.New("LZ4 decode failed")
	// ErrEntryNotFound indicates a package has no entry with the requested name.
	ErrEntryNotFound = errors.New("package entry not found")
	// ErrUnsafePath indicates a package entry name escapes the output directory.
	ErrUnsafePath = errors.New("unsafe entry path")
)
