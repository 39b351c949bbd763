package util

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
)

// ProfileExclusions are the parts of a Chromium profile that are safe to drop
// when a cache entry is archived: caches rebuilt on launch and the lock files
// of a running browser.
var ProfileExclusions = struct {
	// ExcludeDirectory: exact directory names (case-sensitive)
	ExcludeDirectory []string
	// ExcludeFilenamePatterns: patterns for filename matching (handled manually)
	ExcludeFilenamePatterns []string
}{
	ExcludeDirectory: []string{
		"Cache",
		"Code Cache",
		"GPUCache",
		"GrShaderCache",
		"ShaderCache",
		"DawnCache",
		"Crashpad",
	},

	ExcludeFilenamePatterns: []string{
		"Singleton*",
		"*.tmp",
		"LOCK",
	},
}

// ZipOptions configures ZipDirectory.
type ZipOptions struct {
	ExcludeDirectories      []string
	ExcludeFilenamePatterns []string
	Verbose                 bool // Track individual excluded files
}

// ZipStats tracks statistics about the zipping operation
type ZipStats struct {
	mu            sync.Mutex
	FilesIncluded int
	FilesExcluded int
	BytesIncluded int64
	ExcludedPaths []string
}

func (s *ZipStats) addIncluded(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesIncluded++
	s.BytesIncluded += bytes
}

func (s *ZipStats) addExcluded(path string, verbose bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesExcluded++
	if verbose {
		s.ExcludedPaths = append(s.ExcludedPaths, path)
	}
}

// ZipDirectory archives srcDir into destZip. Paths inside the archive are
// relative to srcDir; hidden files and symlinks are kept.
func ZipDirectory(srcDir, destZip string, opts *ZipOptions) (*ZipStats, error) {
	if opts == nil {
		opts = &ZipOptions{}
	}
	stats := &ZipStats{}

	zipFile, err := os.Create(destZip)
	if err != nil {
		return nil, err
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	fileQueue := make(chan *gocodewalker.File, 256)
	walker := gocodewalker.NewFileWalker(srcDir, fileQueue)
	walker.IncludeHidden = true
	walker.IgnoreGitIgnore = true
	walker.IgnoreIgnoreFile = true
	walker.ExcludeDirectory = append(walker.ExcludeDirectory, opts.ExcludeDirectories...)

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
	}()

	// drain keeps the walker from blocking when we bail out early
	drain := func() {
		for range fileQueue {
		}
		<-errChan
	}

	dirsAdded := make(map[string]struct{})
	for f := range fileQueue {
		relPath, err := filepath.Rel(srcDir, f.Location)
		if err != nil {
			drain()
			return stats, err
		}
		relPath = filepath.ToSlash(relPath)

		if matchesAny(filepath.Base(f.Location), opts.ExcludeFilenamePatterns) {
			stats.addExcluded(relPath, opts.Verbose)
			continue
		}

		if err := addParents(zipWriter, relPath, dirsAdded); err != nil {
			drain()
			return stats, err
		}
		n, err := addFile(zipWriter, f.Location, relPath)
		if err != nil {
			drain()
			return stats, err
		}
		stats.addIncluded(n)
	}

	if err := <-errChan; err != nil {
		return stats, fmt.Errorf("directory walk failed: %w", err)
	}
	return stats, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// addParents writes directory entries for every parent of relPath not yet in
// the archive.
func addParents(zw *zip.Writer, relPath string, added map[string]struct{}) error {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." || dir == "" {
		return nil
	}
	var current string
	for _, segment := range strings.Split(dir, "/") {
		if current == "" {
			current = segment
		} else {
			current = current + "/" + segment
		}
		if _, ok := added[current+"/"]; ok {
			continue
		}
		if _, err := zw.Create(current + "/"); err != nil {
			return err
		}
		added[current+"/"] = struct{}{}
	}
	return nil
}

func addFile(zw *zip.Writer, path, relPath string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return 0, err
		}
		hdr := &zip.FileHeader{Name: relPath, Method: zip.Store}
		hdr.SetMode(os.ModeSymlink | 0777)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write([]byte(target)); err != nil {
			return 0, err
		}
		return int64(len(target)), nil
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	hdr.Name = relPath
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(w, file)
}

// crxMagic starts a Chrome Web Store package: a signed header followed by a
// plain zip archive.
var crxMagic = []byte("Cr24")

// Unzip extracts a zip archive, or a CRX package, into destDir. Entries that
// would land outside destDir are rejected.
func Unzip(zipPath, destDir string) error {
	f, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	offset, err := zipOffset(f)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	reader, err := zip.NewReader(io.NewSectionReader(f, offset, info.Size()-offset), info.Size()-offset)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, file := range reader.File {
		destPath := filepath.Join(destDir, file.Name)

		if !strings.HasPrefix(destPath, root) {
			return fmt.Errorf("illegal file path: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}

		if file.Mode()&os.ModeSymlink != 0 {
			if err := extractSymlink(file, destPath, root); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(file, destPath); err != nil {
			return err
		}
	}
	return nil
}

// zipOffset returns where the zip data starts: zero for a plain archive, past
// the header for a CRX2 or CRX3 package.
func zipOffset(f io.ReaderAt) (int64, error) {
	head := make([]byte, 16)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if n < 12 || !bytes.Equal(head[:4], crxMagic) {
		return 0, nil
	}
	version := binary.LittleEndian.Uint32(head[4:8])
	switch version {
	case 2:
		if n < 16 {
			return 0, fmt.Errorf("truncated crx2 header")
		}
		keyLen := binary.LittleEndian.Uint32(head[8:12])
		sigLen := binary.LittleEndian.Uint32(head[12:16])
		return 16 + int64(keyLen) + int64(sigLen), nil
	case 3:
		headerLen := binary.LittleEndian.Uint32(head[8:12])
		return 12 + int64(headerLen), nil
	default:
		return 0, fmt.Errorf("unsupported crx version %d", version)
	}
}

func extractSymlink(file *zip.File, destPath, root string) error {
	r, err := file.Open()
	if err != nil {
		return err
	}
	target, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return err
	}
	resolved := string(target)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(destPath), resolved)
	}
	if !strings.HasPrefix(filepath.Clean(resolved), root) {
		return fmt.Errorf("illegal symlink target: %s -> %s", file.Name, target)
	}
	return os.Symlink(string(target), destPath)
}

func extractFile(file *zip.File, destPath string) error {
	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	r, err := file.Open()
	if err != nil {
		destFile.Close()
		return err
	}
	_, err = io.Copy(destFile, r)
	r.Close()
	if closeErr := destFile.Close(); err == nil {
		err = closeErr
	}
	return err
}
