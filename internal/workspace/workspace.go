// Package workspace materializes a session's working directory from an
// initialization source: a plain directory, a .zip archive, or a .tar.gz
// archive.
package workspace

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
)

// Sentinel errors the request handler maps onto wire error codes.
var (
	ErrInitNotFound   = errors.New("workspace: init source not found")
	ErrUnsupportedInit = errors.New("workspace: unsupported init source type")
	ErrExtractFailed  = errors.New("workspace: extraction failed")
)

// Build populates dest (a session's workspace/ directory, already created)
// from initSource. Directories are copied recursively, following symlinks
// rather than recreating them in dest. .zip and .tar.gz files are
// extracted. Any other file type is rejected.
//
// On extraction failure the workspace may be left partially populated; the
// caller is responsible for removing dest on abort.
func Build(fs fsys.FS, dest, initSource string) error {
	info, err := os.Stat(initSource)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInitNotFound, initSource)
	}

	if info.IsDir() {
		return copyDir(fs, initSource, dest)
	}

	switch {
	case strings.HasSuffix(initSource, ".zip"):
		return extractZip(fs, initSource, dest)
	case strings.HasSuffix(initSource, ".tar.gz"):
		return extractTarGz(fs, initSource, dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedInit, initSource)
	}
}

// copyDir walks src on the real filesystem (os.Stat already confirmed it
// exists) and writes every regular file's bytes into dest through fs,
// following symlinks so the workspace never contains one. filepath.Walk
// does not descend into a symlinked directory, so such a link becomes an
// empty directory in dest; its contents are not copied.
func copyDir(fs fsys.FS, src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, relErr)
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}

		// info from Walk reflects os.Lstat for symlinks; resolve the
		// referent and copy its bytes rather than recreating the link.
		resolved, statErr := os.Stat(path)
		if statErr != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, statErr)
		}
		if resolved.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, readErr)
		}
		if mkErr := fs.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, mkErr)
		}
		return fs.WriteFile(target, data, resolved.Mode().Perm())
	})
}

func extractZip(fs fsys.FS, archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}

		if f.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractFailed, err)
			}
			continue
		}

		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}

		data, err := readZipEntry(f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}
		if err := fs.WriteFile(target, data, f.Mode().Perm()); err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func extractTarGz(fs fsys.FS, archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractFailed, err)
			}
		case tar.TypeReg:
			if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractFailed, err)
			}
			data, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrExtractFailed, err)
			}
			if err := fs.WriteFile(target, data, os.FileMode(hdr.Mode).Perm()); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractFailed, err)
			}
		default:
			// symlinks, devices, etc. inside an archive are skipped rather
			// than recreated in the workspace.
		}
	}
}

// safeJoin joins dest and name, rejecting any entry whose resolved path
// would escape dest (a zip-slip guard for archives with ".." components).
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal path escaping workspace: %s", name)
	}
	return target, nil
}
