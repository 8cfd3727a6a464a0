package pose

// ResetterBuilderOption is a functional option for configuring a Resetter.
type ResetterBuilderOption func(*resetterImpl)

// WithJoints replaces the joint list.
//
// Parameters:
//   - names: joint names to reset
//
// Returns:
//   - ResetterBuilderOption: option function to apply
func WithJoints(names ...string) ResetterBuilderOption {
	return func(r *resetterImpl) {
		r.joints = append([]string(nil), names...)
	}
}

// WithExtraJoints appends joints to the current list.
//
// Parameters:
//   - names: additional joint names to reset
//
// Returns:
//   - ResetterBuilderOption: option function to apply
func WithExtraJoints(names ...string) ResetterBuilderOption {
	return func(r *resetterImpl) {
		r.joints = append(r.joints, names...)
	}
}
