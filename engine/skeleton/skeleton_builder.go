package skeleton

// skeletonBuilder collects joints before the hierarchy is validated and ordered.
type skeletonBuilder struct {
	name   string
	joints []Joint
}

// SkeletonBuilderOption is a functional option for configuring a Skeleton.
type SkeletonBuilderOption func(*skeletonBuilder)

// WithName sets the rig name reported by Name().
//
// Parameters:
//   - name: the rig name
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithName(name string) SkeletonBuilderOption {
	return func(b *skeletonBuilder) {
		b.name = name
	}
}

// WithJoints appends joints to the rig. Order does not matter.
//
// Parameters:
//   - joints: the joints to add
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithJoints(joints ...Joint) SkeletonBuilderOption {
	return func(b *skeletonBuilder) {
		b.joints = append(b.joints, joints...)
	}
}
