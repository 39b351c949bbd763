package util

import (
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a single file from src to dst
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// CopyDirOptions configures CopyDir.
type CopyDirOptions struct {
	// Skip reports whether an entry (by base name) should not be copied.
	Skip func(name string, isDir bool) bool
}

// CopyDir recursively copies a directory from src to dst. Symlinks are
// recreated, not followed.
func CopyDir(src, dst string, opts *CopyDirOptions) error {
	if opts == nil {
		opts = &CopyDirOptions{}
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if opts.Skip != nil && opts.Skip(entry.Name(), entry.IsDir()) {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		case entry.IsDir():
			if err := CopyDir(srcPath, dstPath, opts); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if err := CopyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
		// Sockets and other special files are not copied.
	}

	return nil
}

// SkipProfileLocks skips the lock files a running Chromium leaves in its
// profile directory. Use it as CopyDirOptions.Skip.
func SkipProfileLocks(name string, isDir bool) bool {
	return !isDir && matchesAny(name, ProfileExclusions.ExcludeFilenamePatterns)
}
