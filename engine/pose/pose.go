package pose

import (
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// DefaultJoints lists the hand and arm joints that signing moves and that are returned to rest
// before a new sequence.
var DefaultJoints = []string{
	"mixamorigLeftHandIndex1",
	"mixamorigLeftHandMiddle1",
	"mixamorigLeftHandRing1",
	"mixamorigLeftHandPinky1",
	"mixamorigLeftHand",
	"mixamorigLeftForeArm",
	"mixamorigLeftArm",

	"mixamorigRightHandIndex1",
	"mixamorigRightHandMiddle1",
	"mixamorigRightHandMiddle2",
	"mixamorigRightHandMiddle3",
	"mixamorigRightHandRing1",
	"mixamorigRightHandRing2",
	"mixamorigRightHandRing3",
	"mixamorigRightHandPinky1",
	"mixamorigRightHandPinky2",
	"mixamorigRightHandPinky3",
	"mixamorigRightHandThumb2",
	"mixamorigRightHandThumb3",
	"mixamorigRightHand",
	"mixamorigRightForeArm",
	"mixamorigRightArm",
}

type resetterImpl struct {
	joints []string
}

// Resetter restores a rig's signing joints to the rest pose.
type Resetter interface {
	// Reset zeroes the x, y and z rotation of every configured joint.
	// Joints the rig does not have are skipped, so partial rigs degrade gracefully.
	//
	// Parameters:
	//   - s: the rig to reset
	//
	// Returns:
	//   - int: the number of joints that were reset
	Reset(s skeleton.Skeleton) int

	// Joints returns the configured joint names.
	Joints() []string
}

var _ Resetter = &resetterImpl{}

// NewResetter creates a Resetter for DefaultJoints unless options replace or extend the list.
//
// Parameters:
//   - options: functional options for the joint list
//
// Returns:
//   - Resetter: the resetter
func NewResetter(options ...ResetterBuilderOption) Resetter {
	r := &resetterImpl{
		joints: append([]string(nil), DefaultJoints...),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *resetterImpl) Reset(s skeleton.Skeleton) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, name := range r.joints {
		if err := s.SetRotation(name, skeleton.Vector3{}); err == nil {
			n++
		}
	}
	return n
}

func (r *resetterImpl) Joints() []string {
	return append([]string(nil), r.joints...)
}
