package skeleton

import "fmt"

// MixamoPrefix is the joint name prefix used by Mixamo-rigged avatars.
const MixamoPrefix = "mixamorig"

type fingerSpec struct {
	name  string
	base  Vector3
	pitch float32
}

var mixamoFingers = []fingerSpec{
	{name: "Thumb", base: Vector3{0.025, -0.01, 0.03}, pitch: 0.028},
	{name: "Index", base: Vector3{0.09, 0, 0.025}, pitch: 0.032},
	{name: "Middle", base: Vector3{0.095, 0, 0.005}, pitch: 0.035},
	{name: "Ring", base: Vector3{0.09, 0, -0.015}, pitch: 0.032},
	{name: "Pinky", base: Vector3{0.08, 0, -0.035}, pitch: 0.025},
}

// MixamoJoints returns the upper-body joint set of a Mixamo rig in a T-pose,
// measured in meters with +Y up and the avatar facing +Z.
//
// Returns:
//   - []Joint: the rig's joints
func MixamoJoints() []Joint {
	j := func(name, parent string, pos Vector3) Joint {
		p := ""
		if parent != "" {
			p = MixamoPrefix + parent
		}
		return Joint{Name: MixamoPrefix + name, Parent: p, Position: pos}
	}

	joints := []Joint{
		j("Hips", "", Vector3{0, 1.0, 0}),
		j("Spine", "Hips", Vector3{0, 0.1, 0}),
		j("Spine1", "Spine", Vector3{0, 0.12, 0}),
		j("Spine2", "Spine1", Vector3{0, 0.13, 0}),
		j("Neck", "Spine2", Vector3{0, 0.15, 0}),
		j("Head", "Neck", Vector3{0, 0.1, 0.02}),
		j("HeadTop_End", "Head", Vector3{0, 0.18, 0}),
	}

	for _, side := range []struct {
		name string
		sign float32
	}{{"Left", 1}, {"Right", -1}} {
		s := side.sign
		joints = append(joints,
			j(side.name+"Shoulder", "Spine2", Vector3{s * 0.06, 0.1, 0}),
			j(side.name+"Arm", side.name+"Shoulder", Vector3{s * 0.12, 0, 0}),
			j(side.name+"ForeArm", side.name+"Arm", Vector3{s * 0.27, 0, 0}),
			j(side.name+"Hand", side.name+"ForeArm", Vector3{s * 0.26, 0, 0}),
		)
		for _, f := range mixamoFingers {
			parent := side.name + "Hand"
			for seg := 1; seg <= 3; seg++ {
				name := fmt.Sprintf("%sHand%s%d", side.name, f.name, seg)
				pos := Vector3{s * f.pitch, 0, 0}
				if seg == 1 {
					pos = Vector3{s * f.base[0], f.base[1], f.base[2]}
				}
				joints = append(joints, j(name, parent, pos))
				parent = name
			}
		}
	}
	return joints
}

// NewMixamoRig builds the built-in Mixamo upper-body rig used when no avatar model is loaded.
//
// Returns:
//   - Skeleton: the rig
func NewMixamoRig() Skeleton {
	s, err := NewSkeleton(WithName("mixamo"), WithJoints(MixamoJoints()...))
	if err != nil {
		panic(fmt.Sprintf("built-in mixamo rig is invalid: %v", err))
	}
	return s
}
