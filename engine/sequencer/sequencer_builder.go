package sequencer

import (
	"log/slog"
	"time"

	"github.com/synapz-learn/signavatar/engine/pose"
)

// SequencerBuilderOption is a functional option for configuring a Sequencer.
// Step size and hold are fixed for the sequencer's lifetime; build a new sequencer to change them.
type SequencerBuilderOption func(*sequencerImpl)

// WithStepSize sets the per-frame increment applied to each joint component.
// Values <= 0 fall back to DefaultStepSize.
//
// Parameters:
//   - step: increment in radians per frame
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithStepSize(step float32) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.stepSize = step
	}
}

// WithHold sets the pause inserted after each completed instruction list.
//
// Parameters:
//   - hold: pause duration; negative values are treated as zero
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithHold(hold time.Duration) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.hold = hold
	}
}

// WithLogger sets the structured logger for submission and drop events.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer sets the renderer invoked once per playing frame.
//
// Parameters:
//   - r: the frame renderer
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithRenderer(r FrameRenderer) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.renderer = r
	}
}

// WithCaptionCallback registers a function receiving the full caption whenever it changes.
// It is called outside the sequencer's lock.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithCaptionCallback(fn func(caption string)) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.onCaption = fn
	}
}

// WithStateCallback registers a function receiving each state transition.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithStateCallback(fn func(state State)) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.onState = fn
	}
}

// WithPoseReset returns the rig to rest according to policy before new sequences start.
//
// Parameters:
//   - r: the resetter
//   - policy: when to reset
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithPoseReset(r pose.Resetter, policy ResetPolicy) SequencerBuilderOption {
	return func(s *sequencerImpl) {
		s.resetter = r
		s.resetPolicy = policy
	}
}
