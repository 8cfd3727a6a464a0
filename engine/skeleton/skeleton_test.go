package skeleton

import (
	"errors"
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestNewSkeletonOrdersParentsFirst(t *testing.T) {
	s, err := NewSkeleton(WithJoints(
		Joint{Name: "hand", Parent: "arm", Position: Vector3{1, 0, 0}},
		Joint{Name: "arm", Parent: "root", Position: Vector3{1, 0, 0}},
		Joint{Name: "root"},
	))
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}

	names := s.Names()
	want := []string{"root", "arm", "hand"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestNewSkeletonRejectsInvalidHierarchies(t *testing.T) {
	tests := []struct {
		name   string
		joints []Joint
	}{
		{"Empty", nil},
		{"Duplicate", []Joint{{Name: "a"}, {Name: "a"}}},
		{"Unknown parent", []Joint{{Name: "a", Parent: "ghost"}}},
		{"Cycle", []Joint{{Name: "r"}, {Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSkeleton(WithJoints(tt.joints...))
			if err == nil {
				t.Errorf("expected error for %s hierarchy", tt.name)
			}
			if s != nil {
				t.Errorf("skeleton = %#v, want a nil interface", s)
			}
		})
	}
}

func TestGetSetComponents(t *testing.T) {
	s := NewMixamoRig()

	if err := s.Set("mixamorigRightHand", PropertyRotation, "z", 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get("mixamorigRightHand", PropertyRotation, "z")
	if err != nil || v != 0.5 {
		t.Fatalf("Get = %v, %v; want 0.5", v, err)
	}

	if _, err := s.Get("mixamorigTail", PropertyRotation, "x"); !errors.Is(err, ErrJointNotFound) {
		t.Errorf("missing joint error = %v", err)
	}
	if err := s.Set("mixamorigRightHand", "quaternion", "x", 1); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("bad property error = %v", err)
	}
	if err := s.Set("mixamorigRightHand", PropertyRotation, "w", 1); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("bad axis error = %v", err)
	}
}

func TestChangedTracksRotationWrites(t *testing.T) {
	s := NewMixamoRig()

	if got := s.Changed(); len(got) != 0 {
		t.Fatalf("fresh rig reported changes: %v", got)
	}

	_ = s.Set("mixamorigRightArm", PropertyRotation, "x", 0.25)
	_ = s.SetRotation("mixamorigLeftArm", Vector3{0, 0, -1})

	got := s.Changed()
	if len(got) != 2 {
		t.Fatalf("Changed() = %v, want 2 joints", got)
	}
	if got["mixamorigRightArm"][0] != 0.25 {
		t.Errorf("right arm rotation = %v", got["mixamorigRightArm"])
	}
	if again := s.Changed(); len(again) != 0 {
		t.Errorf("Changed() did not reset: %v", again)
	}
}

func TestWorldPositionsFollowParentRotation(t *testing.T) {
	s, err := NewSkeleton(WithJoints(
		Joint{Name: "root"},
		Joint{Name: "tip", Parent: "root", Position: Vector3{1, 0, 0}},
	))
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}

	if err := s.Set("root", PropertyRotation, "z", math.Pi/2); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tip := s.WorldPositions()["tip"]
	if !near(tip[0], 0) || !near(tip[1], 1) || !near(tip[2], 0) {
		t.Errorf("tip world position = %v, want (0, 1, 0)", tip)
	}

	bones := s.Bones()
	if len(bones) != 2 {
		t.Fatalf("Bones() returned %d endpoints, want 2", len(bones))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewMixamoRig()
	c := s.Clone()

	_ = c.Set("mixamorigHead", PropertyRotation, "y", 1)

	if v, _ := s.Get("mixamorigHead", PropertyRotation, "y"); v != 0 {
		t.Errorf("clone write leaked into original: %v", v)
	}
	if c.Len() != s.Len() {
		t.Errorf("clone has %d joints, original %d", c.Len(), s.Len())
	}
}

func TestMixamoRigHasFingerChains(t *testing.T) {
	s := NewMixamoRig()

	for _, name := range []string{
		"mixamorigRightHandMiddle3",
		"mixamorigRightHandThumb2",
		"mixamorigLeftHandPinky1",
		"mixamorigHead",
	} {
		if _, ok := s.Joint(name); !ok {
			t.Errorf("rig missing %s", name)
		}
	}

	parent, ok := s.Parent("mixamorigRightHandIndex2")
	if !ok || parent != "mixamorigRightHandIndex1" {
		t.Errorf("Parent(RightHandIndex2) = %q, %v", parent, ok)
	}
}
