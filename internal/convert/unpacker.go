package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"wallpaper-extract/internal/utils"
)

// PackageMagicPrefix starts the version string of every package.
const PackageMagicPrefix = "PKGV"

// FileEntry is one row of a package file table. Offset is relative to the
// end of the table.
type FileEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Package is an opened archive. Entry bytes are read on demand and never
// cached.
type Package struct {
	Version string
	Files   []FileEntry

	src       io.ReaderAt
	size      int64
	dataStart int64
	closer    io.Closer
}

// OpenPackage reads the file table of a package of the given byte size.
func OpenPackage(r io.ReaderAt, size int64) (*Package, error) {
	br := newBinReader(io.NewSectionReader(r, 0, size), size)

	version, err := br.str("package version")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(version, PackageMagicPrefix) {
		return nil, fmt.Errorf("%w: package version %q", ErrUnknownMagic, version)
	}
	utils.Debug("Unpacker: Package Version: %s", version)

	count, err := br.u32("file count")
	if err != nil {
		return nil, err
	}
	utils.Debug("Unpacker: File Count: %d", count)

	// every entry needs at least a name length, offset and size
	if int64(count)*12 > br.remaining {
		return nil, br.truncated("file table", int64(count)*12, br.remaining)
	}

	p := &Package{Version: version, Files: make([]FileEntry, 0, count), src: r, size: size}
	for i := uint32(0); i < count; i++ {
		var e FileEntry
		if e.Name, err = br.str("file name"); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Offset, err = br.u32("file offset"); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Size, err = br.u32("file size"); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		p.Files = append(p.Files, e)
	}

	p.dataStart = br.pos
	utils.Debug("Unpacker: Data starts at offset %d", p.dataStart)
	return p, nil
}

// OpenPackageFile opens the package at path. The file stays open until Close.
func OpenPackageFile(path string) (*Package, error) {
	utils.Debug("Unpacker: Opening package %s", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	p, err := OpenPackage(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.closer = f
	return p, nil
}

func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// DataStart is the absolute offset of the data segment.
func (p *Package) DataStart() int64 {
	return p.dataStart
}

// Bytes reads exactly e.Size bytes of the entry's data.
func (p *Package) Bytes(e FileEntry) ([]byte, error) {
	start := p.dataStart + int64(e.Offset)
	avail := p.size - start
	if avail < 0 {
		avail = 0
	}
	if int64(e.Size) > avail {
		return nil, fmt.Errorf("%w: entry %q: want %d bytes at offset %d, have %d", ErrTruncatedRead, e.Name, e.Size, start, avail)
	}

	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(io.NewSectionReader(p.src, start, int64(e.Size)), buf); err != nil {
		return nil, fmt.Errorf("%w: entry %q: %v", ErrTruncatedRead, e.Name, err)
	}
	return buf, nil
}

// Lookup returns the first entry named name.
func (p *Package) Lookup(name string) (FileEntry, error) {
	for _, e := range p.Files {
		if e.Name == name {
			return e, nil
		}
	}
	return FileEntry{}, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
}

// Extract writes every entry below outputDir using up to workers concurrent
// writers. It stops at the first failure.
func (p *Package) Extract(outputDir string, workers int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	total := len(p.Files)
	for i, entry := range p.Files {
		if i%10 == 0 || i == total-1 {
			utils.Debug("Unpacker: Extracting file %d/%d: %s", i+1, total, entry.Name)
		}
		g.Go(func() error {
			return p.extractEntry(outputDir, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	utils.Debug("Unpacker: Extraction completed successfully")
	return nil
}

func (p *Package) extractEntry(outputDir string, entry FileEntry) error {
	rel := filepath.FromSlash(entry.Name)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, entry.Name)
	}
	destPath := filepath.Join(outputDir, rel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	buf, err := p.Bytes(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, buf, 0644)
}
