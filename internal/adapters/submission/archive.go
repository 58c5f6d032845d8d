package submission

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractBatch unpacks the batch archive into destDir and returns the
// directory holding the submission folders. A directory is returned as is.
func ExtractBatch(ctx context.Context, archivePath, destDir string) (string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveCorrupt, err)
	}
	if info.IsDir() {
		return archivePath, nil
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrArchiveCorrupt, archivePath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStaging, err)
	}
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return "", err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("%w: %w", ErrStaging, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("%w: %w", ErrStaging, err)
		}
		if err := extractFile(f, target); err != nil {
			return "", err
		}
	}
	return destDir, nil
}

// safeJoin rejects entries that would land outside root.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: illegal entry path %q", ErrArchiveCorrupt, name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArchiveCorrupt, f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %s: %w", ErrArchiveCorrupt, f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	return nil
}

// extractFlattened writes every member of archivePath ending in ext into
// dir, discarding directory prefixes.
func extractFlattened(archivePath, dir, ext string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveCorrupt, filepath.Base(archivePath), err)
	}
	defer zr.Close()

	var written []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !hasExtension(f.Name, ext) {
			continue
		}
		base := filepath.Base(filepath.FromSlash(f.Name))
		// macOS resource forks carry the extension but are not sources.
		if strings.HasPrefix(base, "._") {
			continue
		}
		target := filepath.Join(dir, base)
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		written = append(written, base)
	}
	return written, nil
}

// sortedUnique returns names sorted with duplicates removed.
func sortedUnique(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}
