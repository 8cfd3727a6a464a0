package skeleton

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/synapz-learn/signavatar/common"
)

var (
	// ErrJointNotFound is returned when a joint name is not present on the rig.
	ErrJointNotFound = errors.New("joint not found")

	// ErrPropertyNotFound is returned when a property or axis does not name a transform component.
	ErrPropertyNotFound = errors.New("property not found")
)

// Transform property names addressable through Get and Set.
const (
	PropertyRotation = "rotation"
	PropertyPosition = "position"
	PropertyScale    = "scale"
)

// Vector3 is an (x, y, z) triple.
type Vector3 [3]float32

// Pose maps joint names to Euler XYZ rotations in radians.
type Pose map[string]Vector3

// Joint describes a named node of a skeletal rig relative to its parent.
type Joint struct {
	// Name is the unique joint identifier, e.g. "mixamorigRightHand".
	Name string

	// Parent is the parent joint name, empty for a root joint.
	Parent string

	// Position is the translation from the parent joint.
	Position Vector3

	// Rotation is the local rotation as Euler angles (radians) applied in X, Y, Z order.
	Rotation Vector3

	// Scale is the local scale. A zero scale is treated as (1, 1, 1).
	Scale Vector3
}

type joint struct {
	Joint
	parentIndex int
	quaternion  [4]float32
}

type skeletonImpl struct {
	mu sync.RWMutex

	name    string
	joints  []joint
	index   map[string]int
	changed map[int]struct{}
}

// Skeleton is the accessor through which the sequencer and renderers reach a rig's joints.
// Joints are addressed by name; transform components by property ("rotation", "position", "scale")
// and axis ("x", "y", "z"). A skeleton is safe for concurrent use.
type Skeleton interface {
	// Name returns the rig name.
	//
	// Returns:
	//   - string: the rig name
	Name() string

	// Joint returns a copy of the named joint.
	//
	// Parameters:
	//   - name: the joint name
	//
	// Returns:
	//   - Joint: copy of the joint's current local transform
	//   - bool: false if the rig has no joint with this name
	Joint(name string) (Joint, bool)

	// Get reads one transform component of a joint.
	//
	// Parameters:
	//   - name: the joint name
	//   - property: "rotation", "position" or "scale"
	//   - axis: "x", "y" or "z"
	//
	// Returns:
	//   - float32: the current component value
	//   - error: ErrJointNotFound or ErrPropertyNotFound
	Get(name, property, axis string) (float32, error)

	// Set writes one transform component of a joint.
	// Writing a rotation component keeps the joint's quaternion in sync.
	//
	// Parameters:
	//   - name: the joint name
	//   - property: "rotation", "position" or "scale"
	//   - axis: "x", "y" or "z"
	//   - value: the new component value
	//
	// Returns:
	//   - error: ErrJointNotFound or ErrPropertyNotFound
	Set(name, property, axis string, value float32) error

	// SetRotation replaces a joint's full Euler rotation.
	//
	// Parameters:
	//   - name: the joint name
	//   - rotation: Euler XYZ angles in radians
	//
	// Returns:
	//   - error: ErrJointNotFound if the joint does not exist
	SetRotation(name string, rotation Vector3) error

	// Names returns joint names in parent-first order.
	//
	// Returns:
	//   - []string: the joint names
	Names() []string

	// Len returns the number of joints.
	Len() int

	// Parent returns the parent joint name.
	//
	// Parameters:
	//   - name: the joint name
	//
	// Returns:
	//   - string: the parent name, empty for root joints
	//   - bool: false if the joint does not exist
	Parent(name string) (string, bool)

	// Snapshot returns the current rotation of every joint.
	//
	// Returns:
	//   - Pose: joint name to Euler rotation
	Snapshot() Pose

	// Changed returns the rotations of joints modified since the previous call and clears the set.
	//
	// Returns:
	//   - Pose: joint name to Euler rotation, empty when nothing changed
	Changed() Pose

	// WorldPositions runs forward kinematics and returns every joint's world-space origin.
	//
	// Returns:
	//   - map[string]Vector3: joint name to world position
	WorldPositions() map[string]Vector3

	// Bones returns world-space line segments from each parent joint to its children,
	// flattened as consecutive (start, end) pairs for line-list rendering.
	//
	// Returns:
	//   - []Vector3: segment endpoints, two per bone
	Bones() []Vector3

	// Clone returns an independent deep copy of the rig.
	//
	// Returns:
	//   - Skeleton: the copy
	Clone() Skeleton
}

var _ Skeleton = &skeletonImpl{}

// NewSkeleton creates a skeleton from the joints supplied through options.
// Joints may be given in any order; they are stored parent-first.
//
// Parameters:
//   - options: functional options adding joints and naming the rig
//
// Returns:
//   - Skeleton: the rig
//   - error: error on duplicate names, unknown parents or cycles
func NewSkeleton(options ...SkeletonBuilderOption) (Skeleton, error) {
	b := &skeletonBuilder{name: "skeleton"}
	for _, opt := range options {
		opt(b)
	}
	s, err := b.build()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *skeletonBuilder) build() (*skeletonImpl, error) {
	if len(b.joints) == 0 {
		return nil, errors.New("skeleton has no joints")
	}

	byName := make(map[string]Joint, len(b.joints))
	order := make([]string, 0, len(b.joints))
	for _, j := range b.joints {
		if j.Name == "" {
			return nil, errors.New("joint with empty name")
		}
		if _, dup := byName[j.Name]; dup {
			return nil, fmt.Errorf("duplicate joint %q", j.Name)
		}
		byName[j.Name] = j
		order = append(order, j.Name)
	}

	children := make(map[string][]string)
	var roots []string
	for _, name := range order {
		j := byName[name]
		if j.Parent == "" {
			roots = append(roots, name)
			continue
		}
		if _, ok := byName[j.Parent]; !ok {
			return nil, fmt.Errorf("joint %q: parent %q: %w", name, j.Parent, ErrJointNotFound)
		}
		children[j.Parent] = append(children[j.Parent], name)
	}

	s := &skeletonImpl{
		name:    b.name,
		joints:  make([]joint, 0, len(order)),
		index:   make(map[string]int, len(order)),
		changed: make(map[int]struct{}),
	}

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		j := byName[name]
		if j.Scale == (Vector3{}) {
			j.Scale = Vector3{1, 1, 1}
		}
		parent := -1
		if j.Parent != "" {
			parent = s.index[j.Parent]
		}
		s.index[name] = len(s.joints)
		s.joints = append(s.joints, joint{
			Joint:       j,
			parentIndex: parent,
			quaternion:  common.QuatFromEuler(j.Rotation),
		})
		queue = append(queue, children[name]...)
	}

	if len(s.joints) != len(order) {
		return nil, errors.New("skeleton hierarchy contains a cycle")
	}
	return s, nil
}

func (s *skeletonImpl) Name() string {
	return s.name
}

func (s *skeletonImpl) Joint(name string) (Joint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return Joint{}, false
	}
	return s.joints[i].Joint, true
}

func (s *skeletonImpl) Get(name, property, axis string) (float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, a, err := s.component(name, property, axis)
	if err != nil {
		return 0, err
	}
	return v[a], nil
}

func (s *skeletonImpl) Set(name, property, axis string, value float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, a, err := s.component(name, property, axis)
	if err != nil {
		return err
	}
	v[a] = value

	i := s.index[name]
	if property == PropertyRotation {
		s.joints[i].quaternion = common.QuatFromEuler(s.joints[i].Rotation)
	}
	s.changed[i] = struct{}{}
	return nil
}

func (s *skeletonImpl) SetRotation(name string, rotation Vector3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrJointNotFound)
	}
	s.joints[i].Rotation = rotation
	s.joints[i].quaternion = common.QuatFromEuler(rotation)
	s.changed[i] = struct{}{}
	return nil
}

// component resolves a property/axis pair to a pointer into the joint. Callers hold the lock.
func (s *skeletonImpl) component(name, property, axis string) (*Vector3, int, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, 0, fmt.Errorf("%q: %w", name, ErrJointNotFound)
	}

	a, ok := axisIndex(axis)
	if !ok {
		return nil, 0, fmt.Errorf("%q axis %q: %w", name, axis, ErrPropertyNotFound)
	}

	j := &s.joints[i]
	switch property {
	case PropertyRotation:
		return &j.Rotation, a, nil
	case PropertyPosition:
		return &j.Position, a, nil
	case PropertyScale:
		return &j.Scale, a, nil
	}
	return nil, 0, fmt.Errorf("%q property %q: %w", name, property, ErrPropertyNotFound)
}

func axisIndex(axis string) (int, bool) {
	switch axis {
	case "x":
		return 0, true
	case "y":
		return 1, true
	case "z":
		return 2, true
	}
	return 0, false
}

func (s *skeletonImpl) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.joints))
	for i, j := range s.joints {
		names[i] = j.Name
	}
	return names
}

func (s *skeletonImpl) Len() int {
	return len(s.joints)
}

func (s *skeletonImpl) Parent(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.joints[i].Parent, true
}

func (s *skeletonImpl) Snapshot() Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := make(Pose, len(s.joints))
	for _, j := range s.joints {
		p[j.Name] = j.Rotation
	}
	return p
}

func (s *skeletonImpl) Changed() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := make(Pose, len(s.changed))
	for i := range s.changed {
		p[s.joints[i].Name] = s.joints[i].Rotation
	}
	clear(s.changed)
	return p
}

func (s *skeletonImpl) WorldPositions() map[string]Vector3 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	world := s.worldMatrices()
	out := make(map[string]Vector3, len(s.joints))
	for i, j := range s.joints {
		m := world[i]
		out[j.Name] = Vector3{m[12], m[13], m[14]}
	}
	return out
}

func (s *skeletonImpl) Bones() []Vector3 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	world := s.worldMatrices()
	segments := make([]Vector3, 0, 2*len(s.joints))
	for i, j := range s.joints {
		if j.parentIndex < 0 {
			continue
		}
		p := world[j.parentIndex]
		c := world[i]
		segments = append(segments,
			Vector3{p[12], p[13], p[14]},
			Vector3{c[12], c[13], c[14]},
		)
	}
	return segments
}

// worldMatrices relies on parent-first storage: each parent's world matrix is ready before its children.
func (s *skeletonImpl) worldMatrices() [][16]float32 {
	world := make([][16]float32, len(s.joints))
	var local [16]float32
	for i, j := range s.joints {
		common.ComposeTRS(local[:], j.Position, j.quaternion, j.Scale)
		if j.parentIndex < 0 {
			world[i] = local
			continue
		}
		common.Mul4(world[i][:], world[j.parentIndex][:], local[:])
	}
	return world
}

func (s *skeletonImpl) Clone() Skeleton {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &skeletonImpl{
		name:    s.name,
		joints:  append([]joint(nil), s.joints...),
		index:   make(map[string]int, len(s.index)),
		changed: make(map[int]struct{}),
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// SortedNames returns the keys of a pose in lexical order.
//
// Parameters:
//   - p: the pose
//
// Returns:
//   - []string: sorted joint names
func SortedNames(p Pose) []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
