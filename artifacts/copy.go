package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var logs = logrus.StandardLogger()

// copyObject copies a file, or a whole tree when the source is a directory.
func copyObject(fs afero.Fs, value any, dst string) error {
	src := string(value.(Path))
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return copyTree(fs, src, dst)
	}
	return copyFile(fs, src, dst, info.Mode().Perm())
}

func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return fs.MkdirAll(destPath, info.Mode().Perm()|0o700)
		}
		return copyFile(fs, path, destPath, info.Mode().Perm())
	})
}

func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	destFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return destFile.Close()
}

// Summarize lists every file under dir as "<relative path> (<size>)",
// sorted by path.
func Summarize(fs afero.Fs, dir string) ([]string, error) {
	var lines []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", filepath.ToSlash(relPath), formatSize(info.Size())))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(lines)
	return lines, nil
}

func formatSize(size int64) string {
	switch {
	case size < 1e3:
		return fmt.Sprintf("%d bytes", size)
	case size < 1e6:
		return fmt.Sprintf("%.3f KB", float64(size)/1e3)
	case size < 1e9:
		return fmt.Sprintf("%.3f MB", float64(size)/1e6)
	default:
		return fmt.Sprintf("%.3f GB", float64(size)/1e9)
	}
}
