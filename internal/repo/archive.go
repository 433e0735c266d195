package repo

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// junkEntries are top level archive entries that do not count towards the layout check.
var junkEntries = map[string]bool{"__MACOSX": true}

// ErrExtractedTooLarge is returned when the unpacked entries exceed the extraction limit.
var ErrExtractedTooLarge = errors.New("extracted archive exceeds size limit")

// extractZip unpacks src into dest and returns the single top level directory.
// A positive limit caps the total number of bytes written.
func extractZip(src, dest string, limit int64) (string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	tops := make(map[string]bool)
	remaining := limit
	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." || strings.HasPrefix(name, "../") || name == ".." || path.IsAbs(name) {
			return "", fmt.Errorf("illegal entry path %q", f.Name)
		}
		top, rest, _ := strings.Cut(name, "/")
		if junkEntries[top] {
			continue
		}
		// entries with rest == "" are files at the archive root unless they are dirs
		tops[top] = tops[top] || rest != "" || f.FileInfo().IsDir()

		target := filepath.Join(dest, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		n, err := writeEntry(f, target, remaining, limit > 0)
		if err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		remaining -= n
	}

	if len(tops) != 1 {
		return "", errors.New("unexpected archive layout: expected a single top level directory")
	}
	for top, isDir := range tops {
		if !isDir {
			return "", errors.New("unexpected archive layout: expected a single top level directory")
		}
		return filepath.Join(dest, top), nil
	}
	return "", nil
}

// writeEntry copies one file entry to target. When capped, at most remaining
// bytes may be written; the declared size in the header is not trusted.
func writeEntry(f *zip.File, target string, remaining int64, capped bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	var body io.Reader = rc
	if capped {
		body = io.LimitReader(rc, remaining+1)
	}
	n, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		return n, err
	}
	if capped && n > remaining {
		out.Close()
		return n, ErrExtractedTooLarge
	}
	return n, out.Close()
}
