package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/githubnext/pipelint/pkg/constants"
)

// isPipelineFile reports whether path has a pipeline document extension
func isPipelineFile(path string) bool {
	return slices.Contains(constants.PipelineExtensions, strings.ToLower(filepath.Ext(path)))
}

// ResolveFiles expands the given arguments into a sorted list of pipeline
// files. Arguments may be files, directories (searched recursively, skipping
// hidden entries) or glob patterns.
func ResolveFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := findPipelineFiles(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		case err == nil:
			add(arg)
		default:
			matches, globErr := filepath.Glob(arg)
			if globErr != nil {
				return nil, fmt.Errorf("invalid pattern %s: %w", arg, globErr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %s", arg)
			}
			for _, m := range matches {
				if isPipelineFile(m) {
					add(m)
				}
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

// findPipelineFiles walks dir for files with a pipeline extension
func findPipelineFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := path != dir && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden && isPipelineFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", dir, err)
	}
	return files, nil
}
