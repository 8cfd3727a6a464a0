package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/synapz-learn/signavatar/common"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

// project maps a world point to normalized device coordinates.
func project(m [16]float32, p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	return [3]float32{x / w, y / w, z / w}
}

func TestDefaultFramingCentersTarget(t *testing.T) {
	c := NewCamera()

	if !near(c.Fov(), 30*math.Pi/180) {
		t.Errorf("fov = %v", c.Fov())
	}

	ndc := project(c.ViewProjectionMatrix(), DefaultTarget)
	if !near(ndc[0], 0) || !near(ndc[1], 0) {
		t.Errorf("target projects to %v, want screen centre", ndc)
	}
	if ndc[2] < 0 || ndc[2] > 1 {
		t.Errorf("target depth %v outside WebGPU clip range", ndc[2])
	}
}

func TestZoomClampsToNearPlane(t *testing.T) {
	c := NewCamera()

	c.Zoom(0.6)
	if p := c.Position(); !near(p[2], 1.0) {
		t.Errorf("after zoom z = %v, want 1.0", p[2])
	}

	c.Zoom(50)
	p := c.Position()
	dist := p[2] - DefaultTarget[2]
	if !near(dist, DefaultNear) {
		t.Errorf("zoomed distance = %v, want clamp at near plane", dist)
	}
}

func TestSetAspectIgnoresDegenerateSizes(t *testing.T) {
	c := NewCamera(WithAspect(2))
	c.SetAspect(0)
	if c.Aspect() != 2 {
		t.Errorf("aspect = %v", c.Aspect())
	}

	before := c.ProjectionMatrix()
	c.SetAspect(1)
	if after := c.ProjectionMatrix(); after[0] == before[0] {
		t.Error("projection not recomputed")
	}
}

func TestUniformMarshal(t *testing.T) {
	c := NewCamera()
	u := c.Uniform()
	buf := u.Marshal()

	if len(buf) != 80 {
		t.Fatalf("uniform size = %d", len(buf))
	}
	vp := c.ViewProjectionMatrix()
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])); got != vp[0] {
		t.Errorf("view_proj[0] = %v, want %v", got, vp[0])
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[64+4:])); got != DefaultPosition[1] {
		t.Errorf("position.y = %v", got)
	}
}

func TestViewMatrixMatchesLookAt(t *testing.T) {
	c := NewCamera(WithPosition([3]float32{1, 2, 3}), WithTarget([3]float32{0, 0, 0}))
	var want [16]float32
	common.LookAt(want[:], [3]float32{1, 2, 3}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	if c.ViewMatrix() != want {
		t.Errorf("view = %v, want %v", c.ViewMatrix(), want)
	}
}
