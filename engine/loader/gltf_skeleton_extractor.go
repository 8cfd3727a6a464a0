package loader

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/synapz-learn/signavatar/common"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

var errNoJoints = errors.New("document contains no joints")

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor converts a parsed document into rig joints.
type gltfSkeletonExtractor interface {
	// ExtractJoints returns the joints of the first skin. When the document has no skin,
	// every named node without a mesh becomes a joint.
	//
	// Returns:
	//   - []skeleton.Joint: joints with parent names resolved
	//   - error: errNoJoints or a node index error
	ExtractJoints() ([]skeleton.Joint, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractJoints() ([]skeleton.Joint, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	var nodes []int
	if len(doc.Skins) > 0 {
		nodes = doc.Skins[0].Joints
	} else {
		for i, n := range doc.Nodes {
			if n.Name != "" && n.Mesh == nil {
				nodes = append(nodes, i)
			}
		}
	}
	if len(nodes) == 0 {
		return nil, errNoJoints
	}

	parentOf := make(map[int]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			parentOf[c] = i
		}
	}

	names := make(map[int]string, len(nodes))
	for i, idx := range nodes {
		if idx < 0 || idx >= len(doc.Nodes) {
			return nil, fmt.Errorf("joint %d: invalid node index %d", i, idx)
		}
		name := sanitizeNodeName(doc.Nodes[idx].Name)
		if name == "" {
			name = fmt.Sprintf("joint_%d", i)
		}
		names[idx] = name
	}

	joints := make([]skeleton.Joint, 0, len(nodes))
	for _, idx := range nodes {
		node := &doc.Nodes[idx]
		t, q, s := gltfNodeTRS(node)

		j := skeleton.Joint{
			Name:     names[idx],
			Position: t,
			Rotation: common.EulerFromQuat(q),
			Scale:    s,
		}

		// Walk up past non-joint nodes (armature containers) to the nearest joint ancestor.
		p, ok := parentOf[idx]
		for hops := 0; ok && hops < len(doc.Nodes); hops++ {
			if name, isJoint := names[p]; isJoint {
				j.Parent = name
				break
			}
			p, ok = parentOf[p]
		}
		joints = append(joints, j)
	}
	return joints, nil
}

// gltfNodeTRS returns a node's local translation, rotation and scale.
func gltfNodeTRS(node *gltfNode) (t [3]float32, q [4]float32, s [3]float32) {
	if node.Matrix != nil {
		return common.DecomposeTRS(*node.Matrix)
	}

	q = [4]float32{0, 0, 0, 1}
	s = [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		q = *node.Rotation
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	return t, q, s
}

// sanitizeNodeName turns exporter names such as "mixamorig:RightHand" into the
// binding-safe form "mixamorigRightHand" used by sign tables.
func sanitizeNodeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case strings.ContainsRune("[].:/", r):
			return -1
		}
		return r
	}, name)
}
