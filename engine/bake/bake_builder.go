package bake

import (
	"log/slog"

	"github.com/synapz-learn/signavatar/engine/sequencer"
)

// BakerBuilderOption is a functional option for configuring a Baker.
type BakerBuilderOption func(*bakerImpl)

// WithFrameRate sets the synthetic tick rate in frames per second.
//
// Parameters:
//   - hz: frames per second (defaults to 60 when not positive)
//
// Returns:
//   - BakerBuilderOption: a function that sets the frame rate
func WithFrameRate(hz float64) BakerBuilderOption {
	return func(b *bakerImpl) {
		b.frameRate = hz
	}
}

// WithMaxFrames caps the frames recorded per job. Timelines that hit the cap are marked Truncated.
func WithMaxFrames(n int) BakerBuilderOption {
	return func(b *bakerImpl) {
		b.maxFrames = n
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) BakerBuilderOption {
	return func(b *bakerImpl) {
		b.workers = n
	}
}

// WithSequencerOptions forwards options (step size, hold, reset policy) to every job's sequencer.
func WithSequencerOptions(options ...sequencer.SequencerBuilderOption) BakerBuilderOption {
	return func(b *bakerImpl) {
		b.seqOpts = append(b.seqOpts, options...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BakerBuilderOption {
	return func(b *bakerImpl) {
		if logger != nil {
			b.logger = logger
		}
	}
}
