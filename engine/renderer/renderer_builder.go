package renderer

import (
	"log/slog"

	"github.com/synapz-learn/signavatar/engine/camera"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithCamera replaces the default avatar camera.
//
// Parameters:
//   - c: the camera to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(c camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = c
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.config.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff or MSAA4x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.config.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU fallback adapter. This requires a
// software Vulkan ICD such as lavapipe or SwiftShader.
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.config.forceFallbackAdapter = force
	}
}

// WithClearColor sets the background colour.
func WithClearColor(c Color) RendererBuilderOption {
	return func(r *renderer) {
		r.config.clearColor = c
	}
}

// WithBoneColor sets the colour of the bone segments.
func WithBoneColor(c Color) RendererBuilderOption {
	return func(r *renderer) {
		r.config.boneColor = c
	}
}

// WithLogger sets the logger used for surface and lifecycle events.
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
