package loader

import (
	"io"

	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// importedRig is the format-neutral result of a backend import.
type importedRig struct {
	Name   string
	Joints []skeleton.Joint
}

// loaderBackend defines the generic interface for importing rigs from files or streams.
// Concrete implementations (e.g., gltfLoaderBackendImpl) handle format-specific details.
type loaderBackend interface {
	// Load imports the rig of the model at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedRig: the joints found in the file
	//   - error: error if loading fails
	Load(path string) (*importedRig, error)

	// LoadReader imports a rig from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *importedRig: the joints found in the stream
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*importedRig, error)
}
