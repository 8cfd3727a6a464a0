// gltf_types.go holds the subset of the glTF 2.0 JSON schema needed to recover a rig.
// Mesh, material and animation objects are ignored by encoding/json.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// gltfDocument represents the root of a glTF JSON document.
type gltfDocument struct {
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Skins       []gltfSkin       `json:"skins,omitempty"`
}

// gltfAsset contains metadata about the glTF asset.
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.x").
	Version string `json:"version"`

	Generator string `json:"generator,omitempty"`
}

// gltfScene lists root node indices.
type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is a node in the transform hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`

	// Mesh is set on nodes that carry geometry; such nodes are never joints of the fallback rig.
	Mesh *int `json:"mesh,omitempty"`

	// Matrix is a 4x4 column-major transform. When present it replaces TRS.
	Matrix *[16]float32 `json:"matrix,omitempty"`

	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is a unit quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	Scale *[3]float32 `json:"scale,omitempty"`
}

// gltfBuffer represents binary data.
type gltfBuffer struct {
	// URI is a data: URI or a path relative to the document.
	URI string `json:"uri,omitempty"`

	ByteLength int `json:"byteLength"`

	// Data holds the loaded bytes (populated during load).
	Data []byte `json:"-"`
}

// gltfBufferView represents a subset of a buffer.
type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
}

// gltfSkin binds a set of joint nodes to a mesh.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-skin
type gltfSkin struct {
	Name string `json:"name,omitempty"`

	// Skeleton is the node index of the skeleton root (optional).
	Skeleton *int `json:"skeleton,omitempty"`

	// Joints are the node indices of the skeleton joints.
	Joints []int `json:"joints"`
}

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32 // 0x46546C67 ("glTF")
	Version uint32 // 2
	Length  uint32 // total file length
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
