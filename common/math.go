package common

import (
	"math"
	"unsafe"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective creates a perspective projection matrix for WebGPU clip space [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// LookAt creates a view matrix that transforms world coordinates to camera space.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
func LookAt(out []float32, eye, center, up [3]float32) {
	z := normalize3([3]float32{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize3(cross3(up, z))
	y := cross3(z, x)

	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -dot3(x, eye)
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -dot3(y, eye)
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -dot3(z, eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// QuatFromEuler converts Euler angles applied in X, Y, Z order into a unit quaternion (x, y, z, w).
// This matches the intrinsic XYZ convention used by common avatar rigs.
//
// Parameters:
//   - e: rotation angles in radians around X, Y and Z
//
// Returns:
//   - [4]float32: the quaternion as (x, y, z, w)
func QuatFromEuler(e [3]float32) [4]float32 {
	c1, s1 := cosSin(e[0] / 2)
	c2, s2 := cosSin(e[1] / 2)
	c3, s3 := cosSin(e[2] / 2)

	return [4]float32{
		s1*c2*c3 + c1*s2*s3,
		c1*s2*c3 - s1*c2*s3,
		c1*c2*s3 + s1*s2*c3,
		c1*c2*c3 - s1*s2*s3,
	}
}

// EulerFromQuat converts a unit quaternion (x, y, z, w) into XYZ-order Euler angles.
// At gimbal lock (|pitch| near 90 degrees) the Z angle is reported as zero.
//
// Parameters:
//   - q: the quaternion as (x, y, z, w)
//
// Returns:
//   - [3]float32: rotation angles in radians around X, Y and Z
func EulerFromQuat(q [4]float32) [3]float32 {
	x, y, z, w := float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])

	m11 := 1 - 2*(y*y+z*z)
	m12 := 2 * (x*y - w*z)
	m13 := 2 * (x*z + w*y)
	m22 := 1 - 2*(x*x+z*z)
	m23 := 2 * (y*z - w*x)
	m32 := 2 * (y*z + w*x)
	m33 := 1 - 2*(x*x+y*y)

	var out [3]float32
	out[1] = float32(math.Asin(math.Max(-1, math.Min(1, m13))))
	if math.Abs(m13) < 0.9999999 {
		out[0] = float32(math.Atan2(-m23, m33))
		out[2] = float32(math.Atan2(-m12, m11))
	} else {
		out[0] = float32(math.Atan2(m32, m22))
	}
	return out
}

// ComposeTRS builds a column-major model matrix from a translation, quaternion rotation and scale.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - t: translation
//   - q: rotation quaternion (x, y, z, w)
//   - s: scale
func ComposeTRS(out []float32, t [3]float32, q [4]float32, s [3]float32) {
	x, y, z, w := q[0], q[1], q[2], q[3]
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	out[0] = (1 - (yy + zz)) * s[0]
	out[1] = (xy + wz) * s[0]
	out[2] = (xz - wy) * s[0]
	out[3] = 0

	out[4] = (xy - wz) * s[1]
	out[5] = (1 - (xx + zz)) * s[1]
	out[6] = (yz + wx) * s[1]
	out[7] = 0

	out[8] = (xz + wy) * s[2]
	out[9] = (yz - wx) * s[2]
	out[10] = (1 - (xx + yy)) * s[2]
	out[11] = 0

	out[12], out[13], out[14], out[15] = t[0], t[1], t[2], 1
}

// TransformPoint applies a column-major 4x4 affine matrix to a point.
//
// Parameters:
//   - m: the matrix (16 elements)
//   - p: the point
//
// Returns:
//   - [3]float32: the transformed point
func TransformPoint(m []float32, p [3]float32) [3]float32 {
	return [3]float32{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// DecomposeTRS splits a column-major affine matrix into translation, rotation and scale.
//
// Parameters:
//   - m: the matrix (16 elements)
//
// Returns:
//   - t: translation
//   - q: rotation quaternion (x, y, z, w)
//   - s: scale
func DecomposeTRS(m [16]float32) (t [3]float32, q [4]float32, s [3]float32) {
	t = [3]float32{m[12], m[13], m[14]}
	s = [3]float32{
		length3([3]float32{m[0], m[1], m[2]}),
		length3([3]float32{m[4], m[5], m[6]}),
		length3([3]float32{m[8], m[9], m[10]}),
	}

	d := s
	for i := range d {
		if d[i] < 0.0001 {
			d[i] = 1
		}
	}

	q = quatFromRotation(
		m[0]/d[0], m[4]/d[1], m[8]/d[2],
		m[1]/d[0], m[5]/d[1], m[9]/d[2],
		m[2]/d[0], m[6]/d[1], m[10]/d[2],
	)
	return t, q, s
}

// quatFromRotation converts a 3x3 rotation given row by row into a normalized quaternion.
func quatFromRotation(r00, r01, r02, r10, r11, r12, r20, r21, r22 float32) [4]float32 {
	var x, y, z, w float32

	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace+1))) * 2
		w = 0.25 * s
		x = (r21 - r12) / s
		y = (r02 - r20) / s
		z = (r10 - r01) / s
	case r00 > r11 && r00 > r22:
		s := float32(math.Sqrt(float64(1+r00-r11-r22))) * 2
		w = (r21 - r12) / s
		x = 0.25 * s
		y = (r01 + r10) / s
		z = (r02 + r20) / s
	case r11 > r22:
		s := float32(math.Sqrt(float64(1+r11-r00-r22))) * 2
		w = (r02 - r20) / s
		x = (r01 + r10) / s
		y = 0.25 * s
		z = (r12 + r21) / s
	default:
		s := float32(math.Sqrt(float64(1+r22-r00-r11))) * 2
		w = (r10 - r01) / s
		x = (r02 + r20) / s
		y = (r12 + r21) / s
		z = 0.25 * s
	}

	n := float32(math.Sqrt(float64(x*x + y*y + z*z + w*w)))
	if n > 0.0001 {
		x, y, z, w = x/n, y/n, z/n, w/n
	}
	return [4]float32{x, y, z, w}
}

// Clamp restricts v to the closed range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cosSin(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(c), float32(s)
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func length3(v [3]float32) float32 {
	return float32(math.Sqrt(float64(dot3(v, v))))
}

func normalize3(v [3]float32) [3]float32 {
	l := length3(v)
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
