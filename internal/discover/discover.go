// Package discover expands directories into the regular files beneath them.
package discover

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Files returns the explicit files followed by every regular file found under
// dirs, without duplicates. Directory results are sorted; explicit files keep
// their order. Symlinks are not followed. Unreadable directories are skipped
// and reported as io diagnostics.
func Files(explicit, dirs []string) ([]string, []types.Diagnostic) {
	var (
		out   []string
		diags []types.Diagnostic
	)
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, path)
	}

	for _, f := range explicit {
		add(f)
	}

	for _, dir := range dirs {
		var found []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				diags = append(diags, types.Diagnostic{Kind: types.DiagIO, Path: path, Chunk: -1, Message: err.Error()})
				slog.Warn("skipping unreadable path", slog.String("path", path), slog.String("error", err.Error()))
				if d != nil && d.IsDir() && path != dir {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			diags = append(diags, types.Diagnostic{Kind: types.DiagIO, Path: dir, Chunk: -1, Message: err.Error()})
		}
		slices.Sort(found)
		for _, f := range found {
			add(f)
		}
		slog.Debug("directory expanded", slog.String("dir", dir), slog.Int("files", len(found)))
	}

	return out, diags
}
