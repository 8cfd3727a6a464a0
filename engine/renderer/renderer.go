package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/synapz-learn/signavatar/engine/camera"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
	"github.com/synapz-learn/signavatar/engine/window"
)

// DefaultClearColor is the background behind the avatar.
const DefaultClearColor = 0xdddddd

// DefaultBoneColor is the colour of the drawn bone segments.
const DefaultBoneColor = 0x2b3a55

var errNilSkeleton = errors.New("renderer requires a skeleton")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu sync.Mutex

	backend  rendererBackend
	skeleton skeleton.Skeleton
	camera   camera.Camera
	logger   *slog.Logger

	config backendConfig

	// segments is the latest bone snapshot taken by RenderFrame.
	segments []skeleton.Vector3
	dirty    bool

	frames   atomic.Uint64
	draws    atomic.Uint64
	released atomic.Bool
}

// Renderer draws an avatar skeleton as bone line segments.
//
// RenderFrame is safe to call from the tick goroutine: it only snapshots the pose. Draw performs
// the GPU work and belongs on the render goroutine that owns the surface.
type Renderer interface {
	sequencer.FrameRenderer

	// Draw uploads the latest pose snapshot if one is pending, writes the camera uniform and
	// presents a frame.
	//
	// Returns:
	//   - error: an error if the backend could not upload or present
	Draw() error

	// Resize reconfigures the surface and updates the camera aspect ratio.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// Camera returns the camera used for the view-projection uniform.
	Camera() camera.Camera

	// Frames returns how many pose snapshots RenderFrame has taken.
	Frames() uint64

	// Release frees the GPU resources. Draw becomes a no-op afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing the given skeleton into the window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface descriptor and initial size
//   - skel: the skeleton to draw
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the GPU device or pipeline could not be created
func NewRenderer(backendType RendererBackendType, win window.Window, skel skeleton.Skeleton, options ...RendererBuilderOption) (Renderer, error) {
	if win == nil {
		return nil, errors.New("renderer requires a window")
	}
	r, err := newRenderer(nil, skel, options...)
	if err != nil {
		return nil, err
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.config)
		if err != nil {
			return nil, fmt.Errorf("wgpu backend: %w", err)
		}
		r.backend = backend
	}

	r.Resize(win.Width(), win.Height())
	return r, nil
}

// newRenderer applies options around an already constructed backend.
func newRenderer(backend rendererBackend, skel skeleton.Skeleton, options ...RendererBuilderOption) (*renderer, error) {
	if skel == nil {
		return nil, errNilSkeleton
	}
	r := &renderer{
		backend:  backend,
		skeleton: skel,
		logger:   slog.Default(),
		config: backendConfig{
			presentMode: PresentModeVSync,
			sampleCount: MSAA4x,
			clearColor:  ColorFromHex(DefaultClearColor),
			boneColor:   ColorFromHex(DefaultBoneColor),
		},
	}
	for _, opt := range options {
		opt(r)
	}
	if r.camera == nil {
		r.camera = camera.NewCamera()
	}

	// Draw the rest pose before the first playing frame arrives.
	r.RenderFrame()
	r.frames.Store(0)
	return r, nil
}

func (r *renderer) RenderFrame() {
	segments := r.skeleton.Bones()

	r.mu.Lock()
	r.segments = segments
	r.dirty = true
	r.mu.Unlock()

	r.frames.Add(1)
}

func (r *renderer) Draw() error {
	if r.released.Load() {
		return nil
	}

	r.mu.Lock()
	var vertices []byte
	var count uint32
	upload := r.dirty
	if upload {
		vertices, count = encodeSegments(r.segments)
		r.dirty = false
	}
	r.mu.Unlock()

	if upload {
		if err := r.backend.UploadLines(vertices, count); err != nil {
			return fmt.Errorf("upload bones: %w", err)
		}
	}

	uniform := r.camera.Uniform()
	r.backend.WriteCamera(uniform.Marshal())

	if err := r.backend.DrawFrame(); err != nil {
		return err
	}
	r.draws.Add(1)
	return nil
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.camera.SetAspect(float32(width) / float32(height))
	if r.backend != nil {
		r.backend.ConfigureSurface(width, height)
	}
	r.logger.Debug("surface resized", "width", width, "height", height)
}

func (r *renderer) Camera() camera.Camera {
	return r.camera
}

func (r *renderer) Frames() uint64 {
	return r.frames.Load()
}

func (r *renderer) Release() {
	if r.released.Swap(true) {
		return
	}
	if r.backend != nil {
		r.backend.Release()
	}
	r.logger.Debug("renderer released", "frames", r.frames.Load(), "draws", r.draws.Load())
}

// encodeSegments packs bone endpoints as little-endian vec3<f32> vertices.
func encodeSegments(segments []skeleton.Vector3) ([]byte, uint32) {
	buf := make([]byte, len(segments)*vertexStride)
	for i, v := range segments {
		off := i * vertexStride
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	return buf, uint32(len(segments))
}
