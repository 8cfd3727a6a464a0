package loader

import (
	"log/slog"

	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger sets the logger used to report loaded rigs.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRig is an option builder that pre-populates the rig cache.
//
// Parameters:
//   - key: the cache key for the rig
//   - rig: the rig template to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the rig option to a loader
func WithRig(key string, rig skeleton.Skeleton) LoaderBuilderOption {
	return func(l *loader) {
		l.rigCache[key] = rig
	}
}
