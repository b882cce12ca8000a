package facecrop

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the (lower-cased) image extensions picked up by the scanner.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg"}

// ErrWalkCancelled is reported by Walk when the done channel is closed before the walk finishes.
var ErrWalkCancelled = errors.New("directory walk cancelled")

// SkipFunc is called from the walking goroutine for every entry below the root
// which had to be left out because it could not be read.
type SkipFunc func(path string, err error)

// Walk starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported image file to a new channel.
// The result of the walk is sent on the error channel once the paths channel is closed.
// It finishes in case the done channel is getting closed.
//
// Only a missing or unreadable root fails the walk. Unreadable folders and
// broken links below it are reported to skipped (when not nil) and the walk goes on.
// Symbolic links to files are followed, links to folders are not.
func Walk(
	done <-chan struct{},
	root string,
	exts []string,
	skipped SkipFunc,
) (<-chan string, <-chan error) {
	return walkFS(done, os.DirFS(root), root, exts, skipped)
}

// walkFS walks fsys from its root, reporting the paths joined onto root.
func walkFS(
	done <-chan struct{},
	fsys fs.FS,
	root string,
	exts []string,
	skipped SkipFunc,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	skip := func(path string, err error) {
		if skipped != nil {
			skipped(path, err)
		}
	}

	go func() {
		// Close the paths channel after WalkDir returns.
		defer close(pathChan)

		errChan <- fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
			path := filepath.Join(root, filepath.FromSlash(name))
			if err != nil {
				if name == "." {
					return err
				}
				skip(path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !IsSupported(d.Name(), exts) {
				return nil
			}

			regular, err := isRegularFile(fsys, name, d)
			if err != nil {
				skip(path, err)
				return nil
			}
			if !regular {
				return nil
			}

			select {
			case <-done:
				return ErrWalkCancelled
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// isRegularFile reports whether the entry is a regular file, resolving symbolic links.
func isRegularFile(fsys fs.FS, name string, d fs.DirEntry) (bool, error) {
	if d.Type().IsRegular() {
		return true, nil
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsSupported checks case-insensitively whether the file extension is one of exts.
func IsSupported(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, ex := range exts {
		if strings.ToLower(ex) == ext {
			return true
		}
	}
	return false
}
