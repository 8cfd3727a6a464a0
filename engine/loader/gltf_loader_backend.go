package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// gltfLoaderBackendImpl imports rigs from glTF/GLB documents.
type gltfLoaderBackendImpl struct{}

var _ loaderBackend = &gltfLoaderBackendImpl{}

func newGLTFLoaderBackend() loaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*importedRig, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return b.extract(parser, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool) (*importedRig, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return b.extract(parser, "")
}

func (b *gltfLoaderBackendImpl) extract(parser gltfParser, fallbackName string) (*importedRig, error) {
	joints, err := newGLTFSkeletonExtractor(parser).ExtractJoints()
	if err != nil {
		return nil, fmt.Errorf("skeleton extraction failed: %w", err)
	}

	name := fallbackName
	doc := parser.Document()
	if len(doc.Skins) > 0 && doc.Skins[0].Name != "" {
		name = doc.Skins[0].Name
	} else if doc.Scene != nil && *doc.Scene < len(doc.Scenes) && doc.Scenes[*doc.Scene].Name != "" {
		name = doc.Scenes[*doc.Scene].Name
	}

	return &importedRig{Name: name, Joints: joints}, nil
}
