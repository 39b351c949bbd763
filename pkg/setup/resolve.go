package setup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/samber/lo"
	"lukechampine.com/blake3"

	"github.com/kernel/walletcache/pkg/wallets"
)

// Selection restricts resolution to one wallet, or to all of them.
type Selection string

// SelectAll resolves the setup files of every wallet.
const SelectAll Selection = "all"

// SelectWallet resolves only the setup files of id.
func SelectWallet(id wallets.ID) Selection { return Selection(id) }

// NoSetupFilesFoundError is returned when no setup file survives discovery
// and selection filtering.
type NoSetupFilesFoundError struct {
	Dir     string
	Pattern string
}

func (e *NoSetupFilesFoundError) Error() string {
	return fmt.Sprintf("No wallet setup files found at %s Remember that all wallet setup files must end with \".setup.{%s}\" extension!",
		e.Dir, strings.Join(Extensions, ","))
}

// UnregisteredSetupError is returned for a script setup file with no Go setup
// registered under its stem.
type UnregisteredSetupError struct {
	Stem       string
	FilePath   string
	Registered []string
}

func (e *UnregisteredSetupError) Error() string {
	registered := strings.Join(e.Registered, ", ")
	if registered == "" {
		registered = "none"
	}
	return fmt.Sprintf("setup file %s has no registered setup: call setup.Register(%q, ...) (registered: %s)",
		e.FilePath, e.Stem, registered)
}

// excludedDirs are never searched for setup files.
var excludedDirs = []string{"node_modules", ".git"}

// Resolver turns the setup files under a directory into descriptors.
type Resolver struct {
	Handlers *Handlers

	// OnDuplicate, if set, is told about setup files skipped because an
	// earlier file has the same name and content hash.
	OnDuplicate func(kept, dropped string)
}

// NewResolver returns a resolver using the default handler set.
func NewResolver() *Resolver {
	return &Resolver{Handlers: DefaultHandlers()}
}

type loadedFile struct {
	path string
	name Filename
	hash string
	def  Definition
}

// Resolve discovers the setup files under dir, keeps those matching sel and
// loads each into a Descriptor. Descriptors come back sorted by file path; each
// carries the full list of files that matched sel, duplicates included.
func (r *Resolver) Resolve(dir string, sel Selection) ([]Descriptor, error) {
	paths, err := findSetupFiles(dir)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	if sel != SelectAll {
		paths = lo.Filter(paths, func(p string, _ int) bool {
			return walletPrefix(filepath.Base(p)) == string(sel)
		})
	}
	if len(paths) == 0 {
		return nil, &NoSetupFilesFoundError{Dir: dir, Pattern: Pattern}
	}

	var all, files []loadedFile
	seen := make(map[string]string)
	for _, p := range paths {
		f, err := loadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, f)

		// The stem picks the handler and the profile, so only a copy of the
		// same file name with the same content is a duplicate.
		key := f.name.Stem + ":" + f.hash
		if kept, dup := seen[key]; dup {
			if r.OnDuplicate != nil {
				r.OnDuplicate(kept, p)
			}
			continue
		}
		seen[key] = p
		files = append(files, f)
	}

	fileList := lo.Map(all, func(f loadedFile, _ int) FileRef {
		return FileRef{FilePath: f.path, WalletName: f.name.Wallet}
	})

	descriptors := make([]Descriptor, 0, len(files))
	for _, f := range files {
		s, err := r.setupFor(f)
		if err != nil {
			return nil, err
		}
		if s.Password == "" {
			return nil, fmt.Errorf("setup file %s: password cannot be empty", f.path)
		}
		descriptors = append(descriptors, Descriptor{
			WalletName: f.name.Wallet,
			FilePath:   f.path,
			Hash:       f.hash,
			Password:   s.Password,
			Onboard:    s.Onboard,
			Config:     s.Config,
			FileList:   fileList,
		})
	}
	return descriptors, nil
}

// setupFor resolves the onboarding of a file: a handler registered under the
// file stem, then the handler the file names, then the wallet's built-in flow.
func (r *Resolver) setupFor(f loadedFile) (Setup, error) {
	handlers := r.Handlers
	if handlers == nil {
		handlers = DefaultHandlers()
	}
	if s, ok := handlers.Lookup(f.name.Stem); ok {
		return overlay(s, f.def), nil
	}
	if f.name.IsScript() {
		return Setup{}, &UnregisteredSetupError{Stem: f.name.Stem, FilePath: f.path, Registered: handlers.Names()}
	}
	if name := f.def.Onboarding.Handler; name != "" {
		s, ok := handlers.Lookup(name)
		if !ok {
			return Setup{}, fmt.Errorf("setup file %s: unknown onboarding handler %q (registered: %s)",
				f.path, name, strings.Join(handlers.Names(), ", "))
		}
		return overlay(s, f.def), nil
	}
	fn, err := builtinOnboard(f.name.Wallet, f.path, f.def)
	if err != nil {
		return Setup{}, err
	}
	return Define(f.def.Password, fn, f.def.Config()), nil
}

// overlay applies the values a setup file sets on top of a Go-defined setup.
func overlay(s Setup, def Definition) Setup {
	if def.Password != "" {
		s.Password = def.Password
	}
	if def.ProfileName != "" {
		s.Config.ProfileName = def.ProfileName
	}
	if def.SlowMo != 0 {
		s.Config.SlowMo = def.SlowMo
	}
	return s
}

func loadFile(path string) (loadedFile, error) {
	name, err := ParseFilename(path)
	if err != nil {
		return loadedFile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return loadedFile{}, fmt.Errorf("failed to read setup file: %w", err)
	}
	var def Definition
	if !name.IsScript() {
		if def, err = Decode(name.Ext, data); err != nil {
			return loadedFile{}, fmt.Errorf("failed to decode setup file %s: %w", path, err)
		}
	}
	return loadedFile{path: path, name: name, hash: Hash(data), def: def}, nil
}

// Hash returns the hex blake3 digest of setup file contents.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// walletPrefix is the part of a setup file name before the first '-' or '.'.
func walletPrefix(base string) string {
	end := strings.IndexAny(base, "-.")
	if end < 0 {
		return base
	}
	return base[:end]
}

// findSetupFiles walks dir recursively, hidden files included and ignore files
// disregarded. A missing dir yields no files.
func findSetupFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	fileQueue := make(chan *gocodewalker.File, 64)
	walker := gocodewalker.NewFileWalker(dir, fileQueue)
	walker.IncludeHidden = true
	walker.IgnoreGitIgnore = true
	walker.IgnoreIgnoreFile = true
	walker.ExcludeDirectory = append(walker.ExcludeDirectory, excludedDirs...)

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
	}()

	var paths []string
	for f := range fileQueue {
		if isSetupCandidate(filepath.Base(f.Location)) {
			paths = append(paths, f.Location)
		}
	}
	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("setup directory walk failed: %w", err)
	}
	return paths, nil
}
