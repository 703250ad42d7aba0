package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// AssemblyLoader turns one plug-in file into an assembly.
type AssemblyLoader interface {
	Load(path string) (*Assembly, error)
}

// AssemblyLoaderFunc adapts a function to AssemblyLoader.
type AssemblyLoaderFunc func(path string) (*Assembly, error)

func (f AssemblyLoaderFunc) Load(path string) (*Assembly, error) {
	return f(path)
}

// FolderPlugInSource loads every file under a folder whose extension has a
// registered loader. Files are loaded lazily on first use, once, in lexical
// path order. Other files are ignored.
type FolderPlugInSource struct {
	Folder    string
	Recursive bool
	Loaders   map[string]AssemblyLoader

	logger     Logger
	once       sync.Once
	assemblies []*Assembly
	err        error
}

// NewFolderPlugInSource creates a source for folder. Loader keys are file
// extensions including the dot, such as ".yaml".
func NewFolderPlugInSource(folder string, recursive bool, loaders map[string]AssemblyLoader, logger Logger) *FolderPlugInSource {
	if logger == nil {
		logger = nopLogger{}
	}
	return &FolderPlugInSource{Folder: folder, Recursive: recursive, Loaders: loaders, logger: logger}
}

func (s *FolderPlugInSource) Assemblies() ([]*Assembly, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.assemblies), nil
}

func (s *FolderPlugInSource) Modules() ([]string, error) {
	asms, err := s.Assemblies()
	if err != nil {
		return nil, err
	}
	return modulesOf(asms), nil
}

func (s *FolderPlugInSource) String() string {
	if s.Recursive {
		return "folder(" + s.Folder + ", recursive)"
	}
	return "folder(" + s.Folder + ")"
}

func (s *FolderPlugInSource) load() {
	files, err := s.files()
	if err != nil {
		s.err = &PlugInLoadError{Source: s.String(), Path: s.Folder, Err: err}
		return
	}
	for _, path := range files {
		asm, err := s.loadFile(path)
		if err != nil {
			s.err = &PlugInLoadError{Source: s.String(), Path: path, Err: err}
			return
		}
		if asm.Path == "" {
			asm.Path = path
		}
		s.logger.Debug("Loaded plug-in assembly", "path", path, "assembly", asm.Name, "modules", asm.ModuleNames())
		s.assemblies = append(s.assemblies, asm)
	}
}

func (s *FolderPlugInSource) loadFile(path string) (*Assembly, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader := s.Loaders[ext]
	if loader == nil {
		return nil, fmt.Errorf("%w: no loader for %q", ErrUnsupportedAsset, ext)
	}
	asm, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	if asm == nil {
		return nil, fmt.Errorf("%w: loader for %q returned no assembly", ErrUnsupportedAsset, ext)
	}
	return asm, nil
}

// files lists the loadable files of the folder in lexical order.
func (s *FolderPlugInSource) files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.Folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Folder && !s.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if s.loadable(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func (s *FolderPlugInSource) loadable(path string) bool {
	_, ok := s.Loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Watch calls fn whenever a loadable file under the folder is created,
// written, removed or renamed, until ctx is done. It does not reload the
// source; callers build a new source to pick up changes.
func (s *FolderPlugInSource) Watch(ctx context.Context, fn func(fsnotify.Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating plug-in folder watcher: %w", err)
	}
	defer w.Close()

	dirs := []string{s.Folder}
	if s.Recursive {
		dirs = dirs[:0]
		err := filepath.WalkDir(s.Folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("listing plug-in folders: %w", err)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	s.logger.Debug("Watching plug-in folder", "folder", s.Folder, "directories", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.loadable(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				fn(ev)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Plug-in folder watcher error", "folder", s.Folder, "error", err)
		}
	}
}
