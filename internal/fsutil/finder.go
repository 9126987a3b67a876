// Package fsutil holds the launcher's file system helpers: config discovery
// and the working-directory mirror.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FindFilesByExtension walks root and returns every regular file whose name
// ends in extension, compared case-insensitively, in lexical order. Hidden
// directories below root (".git", ".nextflow") are not descended into.
func FindFilesByExtension(root, extension string) ([]string, error) {
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}
	extension = strings.ToLower(extension)

	var files []string
	walk := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
		case d.Type().IsRegular() && strings.HasSuffix(strings.ToLower(d.Name()), extension):
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}
