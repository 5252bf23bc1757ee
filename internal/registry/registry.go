package registry

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tradingdesk/internal/loader"
	"tradingdesk/pkg/exception"
)

var warnf = logs.Warnf

// Registry holds loaded algorithms keyed by their unique name.
type Registry struct {
	mu     sync.RWMutex
	loader *loader.Loader
	algos  map[string]*loader.Algorithm
}

// New creates an empty registry. A nil loader uses loader.Default.
func New(l *loader.Loader) *Registry {
	if l == nil {
		l = loader.Default
	}
	return &Registry{
		loader: l,
		algos:  make(map[string]*loader.Algorithm),
	}
}

// LoadAll loads every library discovered under root. A failing library does
// not stop the others, the failures are joined into the returned error.
func (r *Registry) LoadAll(root string) error {
	paths, err := Discover(root)
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range paths {
		if err := r.Load(path); err != nil {
			logs.Errorf("load %s, err: %+v", path, err)
			errs = append(errs, err)
		}
	}
	return goerrors.Join(errs...)
}

// Load loads one library. A name that is already registered is rejected
// before the new instance is created and the existing entry is kept.
func (r *Registry) Load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	algo, err := r.loader.LoadChecked(path, func(name string) error {
		if _, ok := r.algos[name]; ok {
			return exception.ErrDuplicateAlgorithm
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.algos[algo.Name()] = algo
	return nil
}

// Get returns the algorithm registered under name.
func (r *Registry) Get(name string) (*loader.Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	algo, ok := r.algos[name]
	return algo, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.algos))
	for name := range r.algos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.algos)
}

func (r *Registry) String() string {
	names := r.Names()
	if len(names) == 0 {
		return "ALGORITHMS: None"
	}

	var b strings.Builder
	b.WriteString("ALGORITHMS:")
	for _, name := range names {
		algo, _ := r.Get(name)
		b.WriteString("\n\t")
		b.WriteString(algo.String())
	}
	return b.String()
}

// Discover lists the library paths under root in lexical entry order. Each
// entry is either a library file, or a directory holding one directly, in
// target/release, or in target/debug. Entries without a library are skipped.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "read algorithms dir").With("root", root)
	}

	var paths []string
	for _, entry := range entries {
		full := filepath.Join(root, entry.Name())
		if isLibrary(full) {
			paths = append(paths, full)
			continue
		}

		if !isDir(full) {
			warnf("skip %s, not a %s library", full, LibraryExt)
			continue
		}

		found := ""
		for _, dir := range []string{full, filepath.Join(full, "target", "release"), filepath.Join(full, "target", "debug")} {
			if found = firstLibrary(dir); found != "" {
				break
			}
		}
		if found == "" {
			warnf("skip %s, no %s library found", full, LibraryExt)
			continue
		}
		paths = append(paths, found)
	}
	return paths, nil
}

// firstLibrary returns the first library file directly inside dir.
func firstLibrary(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if isLibrary(full) {
			return full
		}
	}
	return ""
}

// isLibrary follows symlinks so a linked library counts as a file.
func isLibrary(path string) bool {
	if filepath.Ext(path) != LibraryExt {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
