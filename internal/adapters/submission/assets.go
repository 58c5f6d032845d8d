package submission

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// DefaultSupportFiles are helper files copied next to the tests when present.
var DefaultSupportFiles = []string{"TestUtils.java"}

// TestAssets are the instructor files copied into every staging directory.
type TestAssets struct {
	// Main is the entry point class name, e.g. "TestLab3".
	Main string
	// Files are absolute paths of every file to copy.
	Files []string
}

// LocateTestAssets finds prefix*<ext> in testDir plus any support files. The
// file prefix<ext> must exist. An empty ext means DefaultSourceExtension.
func LocateTestAssets(testDir, prefix, ext string, supportFiles []string) (TestAssets, error) {
	if prefix == "" {
		return TestAssets{}, fmt.Errorf("%w: empty test prefix", ErrTestAssetsMissing)
	}
	if ext == "" {
		ext = DefaultSourceExtension
	}
	matches, err := filepath.Glob(filepath.Join(testDir, globEscape(prefix)+"*"+globEscape(ext)))
	if err != nil {
		return TestAssets{}, fmt.Errorf("%w: %w", ErrTestAssetsMissing, err)
	}

	main := filepath.Join(testDir, prefix+ext)
	found := false
	files := make([]string, 0, len(matches)+len(supportFiles))
	for _, m := range matches {
		if m == main {
			found = true
		}
		files = append(files, m)
	}
	if !found {
		return TestAssets{}, fmt.Errorf("%w: %s not found", ErrTestAssetsMissing, main)
	}

	for _, name := range supportFiles {
		p := filepath.Join(testDir, name)
		if _, err := os.Stat(p); err == nil && !slices.Contains(files, p) {
			files = append(files, p)
		}
	}
	sort.Strings(files)

	for i, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			files[i] = abs
		}
	}
	return TestAssets{Main: prefix, Files: files}, nil
}

// CopyAssets copies every asset into dir, replacing existing files.
func CopyAssets(assets TestAssets, dir string) error {
	for _, src := range assets.Files {
		if err := copyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

// copyFile overwrites dst with src, adding owner write permission to an
// existing read-only target first.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	defer in.Close()

	if info, err := os.Stat(dst); err == nil && info.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(dst, info.Mode().Perm()|0o200); err != nil {
			return fmt.Errorf("%w: %w", ErrStaging, err)
		}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	return nil
}

func globEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
