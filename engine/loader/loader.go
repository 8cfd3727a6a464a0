package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger   *slog.Logger
	rigCache map[string]skeleton.Skeleton

	backend loaderBackend
}

// Loader imports avatar rigs from model files and caches them.
// Cached rigs are templates: every lookup hands out an independent clone, so callers
// may animate the returned skeleton without affecting other users of the same model.
type Loader interface {
	// Load imports the rig of a model file, or returns a clone of the cached rig for path.
	// The backend is selected by file extension (.gltf/.glb).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - skeleton.Skeleton: an independent copy of the rig
	//   - error: error if the format is unsupported or the import fails
	Load(path string) (skeleton.Skeleton, error)

	// LoadReader imports a rig from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded rig
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - skeleton.Skeleton: an independent copy of the rig
	//   - error: error if the import fails
	LoadReader(name string, r io.Reader, isGLB bool) (skeleton.Skeleton, error)

	// Get returns a clone of a cached rig, or nil if name is not cached.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - skeleton.Skeleton: the rig copy or nil
	Get(name string) skeleton.Skeleton

	// Rigs returns the sorted cache keys.
	Rigs() []string
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:   slog.Default(),
		rigCache: make(map[string]skeleton.Skeleton),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (skeleton.Skeleton, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, imported)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (skeleton.Skeleton, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	if imported.Name == "" {
		imported.Name = name
	}
	return l.store(name, imported)
}

func (l *loader) Get(name string) skeleton.Skeleton {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if rig, ok := l.rigCache[name]; ok {
		return rig.Clone()
	}
	return nil
}

func (l *loader) Rigs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.rigCache))
	for k := range l.rigCache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// store validates the imported joints into a skeleton and caches it under key.
func (l *loader) store(key string, imported *importedRig) (skeleton.Skeleton, error) {
	rig, err := skeleton.NewSkeleton(
		skeleton.WithName(imported.Name),
		skeleton.WithJoints(imported.Joints...),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid rig in %s: %w", key, err)
	}

	l.mu.Lock()
	l.rigCache[key] = rig
	l.mu.Unlock()

	l.logger.Info("rig loaded", "source", key, "name", rig.Name(), "joints", rig.Len())
	return rig.Clone(), nil
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}
