package camera

import (
	"math"
	"sync"

	"github.com/synapz-learn/signavatar/common"
)

// Default framing for a seated avatar viewed from the front at chest height.
const (
	DefaultFovDegrees = 30
	DefaultNear       = 0.1
	DefaultFar        = 100
)

var (
	// DefaultPosition places the eye 1.6 units in front of the avatar at head height.
	DefaultPosition = [3]float32{0, 1.4, 1.6}

	// DefaultTarget is the point the default camera looks at.
	DefaultTarget = [3]float32{0, 1.4, 0}
)

type cameraImpl struct {
	mu sync.Mutex

	position [3]float32
	target   [3]float32
	up       [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera is a perspective camera looking from a position at a target.
// Matrices are column-major and map to WebGPU clip space.
type Camera interface {
	// Position returns the eye position.
	Position() [3]float32

	// Target returns the point the camera looks at.
	Target() [3]float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// ViewMatrix returns the current 4x4 view matrix.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view.
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// Uniform returns the GPU camera uniform for the current state.
	//
	// Returns:
	//   - GPUCameraUniform: view-projection and eye position
	Uniform() GPUCameraUniform

	// SetAspect sets the aspect ratio and recomputes matrices.
	// Non-positive values are ignored (a minimized window reports zero height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetPosition moves the eye and recomputes matrices.
	//
	// Parameters:
	//   - p: the new eye position
	SetPosition(p [3]float32)

	// Zoom moves the eye along the view direction. Positive delta moves closer.
	// The eye never passes within the near plane distance of the target.
	//
	// Parameters:
	//   - delta: distance to move
	Zoom(delta float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with the default avatar framing applied before options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: DefaultPosition,
		target:   DefaultTarget,
		up:       [3]float32{0, 1, 0},
		fov:      DefaultFovDegrees * (math.Pi / 180.0),
		aspect:   1.0,
		near:     DefaultNear,
		far:      DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{ViewProj: c.viewProjectionMatrix, CameraPosition: c.position}
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(p [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dir [3]float32
	var dist float32
	for i := range dir {
		dir[i] = c.target[i] - c.position[i]
		dist += dir[i] * dir[i]
	}
	dist = float32(math.Sqrt(float64(dist)))
	if dist == 0 {
		return
	}

	next := common.Clamp(dist-delta, c.near, c.far)
	for i := range dir {
		c.position[i] = c.target[i] - dir[i]/dist*next
	}
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.position, c.target, c.up)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
