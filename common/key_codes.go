package common

// Key codes delivered by window key callbacks. Values match GLFW.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyEscape    = 256
	KeyEnter     = 257
	KeyTab       = 258
	KeyBackspace = 259
	KeyDown      = 264
	KeyUp        = 265
)
