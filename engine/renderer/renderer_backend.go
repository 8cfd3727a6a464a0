package renderer

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing.
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// Color is a linear RGBA colour with components in [0, 1].
type Color [4]float64

// ColorFromHex converts a 0xRRGGBB value into a Color with full alpha.
//
// Parameters:
//   - rgb: the packed colour
//
// Returns:
//   - Color: the unpacked colour
func ColorFromHex(rgb uint32) Color {
	return Color{
		float64((rgb>>16)&0xff) / 255,
		float64((rgb>>8)&0xff) / 255,
		float64(rgb&0xff) / 255,
		1,
	}
}

// backendConfig carries the construction-time settings shared by every backend.
type backendConfig struct {
	presentMode          PresentMode
	sampleCount          MSAASampleCount
	forceFallbackAdapter bool
	clearColor           Color
	boneColor            Color
}

// rendererBackend is the GPU-facing half of the Renderer. The front end owns pose
// snapshots and the camera; the backend only uploads bytes and submits passes.
type rendererBackend interface {
	// ConfigureSurface (re)creates the swapchain and attachments for a surface size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// UploadLines replaces the bone vertex buffer.
	//
	// Parameters:
	//   - vertices: tightly packed vec3<f32> positions, two per segment
	//   - count: the number of vertices in the buffer
	//
	// Returns:
	//   - error: an error if the buffer could not be grown
	UploadLines(vertices []byte, count uint32) error

	// WriteCamera writes the serialized camera uniform.
	//
	// Parameters:
	//   - uniform: the marshalled camera uniform
	WriteCamera(uniform []byte)

	// DrawFrame acquires the swapchain image, draws the uploaded lines and presents.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	DrawFrame() error

	// Release frees every GPU object the backend owns.
	Release()
}
