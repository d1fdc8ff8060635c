package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFiles returns every regular file below root whose name ends in ext.
func FindFiles(root, ext string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// OutputPath places src's base name with a new extension in outDir, or next
// to src when outDir is empty. An empty ext drops the extension. When root is
// set, the path of src relative to root is kept below outDir.
func OutputPath(src, root, outDir, ext string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if ext != "" {
		base += "." + ext
	}
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	if root != "" {
		if rel, err := filepath.Rel(root, filepath.Dir(src)); err == nil && filepath.IsLocal(rel) {
			return filepath.Join(outDir, rel, base)
		}
	}
	return filepath.Join(outDir, base)
}

// WriteFile creates parent directories and writes data to path.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
