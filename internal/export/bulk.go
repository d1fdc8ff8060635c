package export

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wallpaper-extract/internal/utils"
)

// BulkResult counts the outcome of a batch conversion.
type BulkResult struct {
	Converted int64
	Failed    int64
}

// BulkConvert converts every .tex file below root. Output mirrors the
// directory layout below outDir, or sits next to each source when outDir is
// empty. A failing file is logged and skipped; only a walk error is returned.
func BulkConvert(root, outDir string, opts *Options) (BulkResult, error) {
	o := opts.withDefaults()
	utils.Info("Starting bulk texture conversion in parallel...")

	files, err := utils.FindFiles(root, ".tex")
	if err != nil {
		utils.Error("Error walking through directory: %v", err)
		return BulkResult{}, err
	}

	var converted, failed atomic.Int64
	var g errgroup.Group
	// bounded to keep decoded pixel buffers in check
	g.SetLimit(o.Workers)

	for _, path := range files {
		g.Go(func() error {
			dst := utils.OutputPath(path, root, outDir, "")
			if _, err := ConvertFile(path, dst, &o); err != nil {
				utils.Error("Failed to convert %s: %v", path, err)
				failed.Add(1)
				return nil
			}
			converted.Add(1)
			return nil
		})
	}
	err = g.Wait()

	res := BulkResult{Converted: converted.Load(), Failed: failed.Load()}
	if err != nil {
		utils.Error("Bulk conversion aborted: %v", err)
		return res, err
	}
	utils.Info("Bulk conversion finished. Processed %d textures, %d failed.", res.Converted, res.Failed)
	return res, nil
}
