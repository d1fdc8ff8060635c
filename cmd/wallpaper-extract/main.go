package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"wallpaper-extract/internal/convert"
	"wallpaper-extract/internal/export"
	"wallpaper-extract/internal/utils"
)

type config struct {
	pkgPath    string
	texPath    string
	dirPath    string
	outDir     string
	format     string
	workers    int
	list       bool
	convert    bool
	allMipmaps bool
	debug      bool
	quiet      bool
	noColor    bool
	logLevel   string
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.pkgPath, "pkg", "", "Path to a scene.pkg archive to extract")
	flag.StringVar(&c.texPath, "tex", "", "Path to a single .tex file to convert")
	flag.StringVar(&c.dirPath, "dir", "", "Directory to scan for .tex files to convert")
	flag.StringVar(&c.outDir, "out", "", "Output directory (default: next to the input)")
	flag.StringVar(&c.format, "format", "png", "Output raster format: png, bmp or tiff")
	flag.IntVar(&c.workers, "workers", 4, "Number of concurrent conversions")
	flag.BoolVar(&c.list, "list", false, "List the entries of -pkg instead of extracting")
	flag.BoolVar(&c.convert, "convert", false, "Convert .tex files after extracting -pkg")
	flag.BoolVar(&c.allMipmaps, "all-mipmaps", false, "Write every mipmap instead of only the largest")
	flag.BoolVar(&c.debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&c.quiet, "quiet", false, "Only log warnings and errors")
	flag.BoolVar(&c.noColor, "no-color", false, "Disable coloured log output")
	flag.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()
	return c
}

func main() {
	c := parseFlags()

	level, err := utils.ParseLevel(c.logLevel)
	if err != nil {
		utils.Error("%v", err)
		os.Exit(2)
	}
	utils.CurrentLevel = level
	switch {
	case c.debug:
		utils.CurrentLevel = utils.LevelDebug
	case c.quiet:
		utils.CurrentLevel = utils.LevelWarn
	}
	utils.NoColor = c.noColor

	format, err := export.ParseFormat(c.format)
	if err != nil {
		utils.Error("%v", err)
		os.Exit(2)
	}
	opts := &export.Options{Format: format, AllMipmaps: c.allMipmaps, Workers: c.workers}

	switch {
	case c.pkgPath != "":
		err = runPackage(c, opts)
	case c.texPath != "":
		err = runTexture(c.texPath, c.outDir, opts)
	case c.dirPath != "":
		_, err = export.BulkConvert(c.dirPath, c.outDir, opts)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

func runPackage(c config, opts *export.Options) error {
	pkg, err := convert.OpenPackageFile(c.pkgPath)
	if err != nil {
		return err
	}
	defer pkg.Close()

	if c.list {
		return listPackage(pkg)
	}

	outDir := c.outDir
	if outDir == "" {
		outDir = utils.OutputPath(c.pkgPath, "", "", "")
	}
	utils.Info("Unpacking %s (%d files) into %s", filepath.Base(c.pkgPath), len(pkg.Files), outDir)
	if err := pkg.Extract(outDir, c.workers); err != nil {
		return err
	}

	if !c.convert {
		return nil
	}
	_, err = export.BulkConvert(outDir, "", opts)
	return err
}

func listPackage(pkg *convert.Package) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "OFFSET\tSIZE\t NAME\n")
	for _, e := range pkg.Files {
		fmt.Fprintf(w, "%d\t%d\t %s\n", e.Offset, e.Size, e.Name)
	}
	fmt.Fprintf(w, "\t\t %s, %d files, data at %d\n", pkg.Version, len(pkg.Files), pkg.DataStart())
	return w.Flush()
}

func runTexture(path, outDir string, opts *export.Options) error {
	utils.Info("Converting texture: %s", path)
	files, err := export.ConvertFile(path, utils.OutputPath(path, "", outDir, ""), opts)
	if err != nil {
		return err
	}
	for _, f := range files {
		utils.Info("Decode successful! Saved to: %s", f)
	}
	return nil
}
