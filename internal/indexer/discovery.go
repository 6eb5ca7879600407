// Package indexer turns a folder of documents into indexed chunks.
package indexer

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Discover lazily yields regular files under root whose extension is in exts, in
// lexicographic walk order. Symlinks are followed to files only, so directory loops
// cannot occur. Unreadable directories and non-matching files are skipped.
func Discover(root string, exts []string, logger *zap.Logger) iter.Seq[string] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				logger.Debug("discovery skipping unreadable entry", zap.String("path", path), zap.Error(walkErr))
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !extensionAllowed(filepath.Ext(path), exts) {
				logger.Debug("discovery skipping unsupported file", zap.String("path", path))
				return nil
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				logger.Debug("discovery skipping non-regular file", zap.String("path", path))
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
