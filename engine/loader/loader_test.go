package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const riggedDoc = `{
  "asset": {"version": "2.0", "generator": "test"},
  "scene": 0,
  "scenes": [{"name": "scene", "nodes": [0, 4]}],
  "nodes": [
    {"name": "Armature", "children": [1]},
    {"name": "mixamorig:Hips", "translation": [0, 1, 0], "children": [2]},
    {"name": "mixamorig:Spine", "rotation": [0, 0, 0.70710677, 0.70710677], "children": [3]},
    {"name": "mixamorig:RightHand", "matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0.5,0,0,1]},
    {"name": "Body", "mesh": 0}
  ],
  "buffers": [{"uri": "data:application/octet-stream;base64,AAAA", "byteLength": 3}],
  "skins": [{"name": "avatar", "joints": [3, 2, 1]}]
}`

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func buildGLB(t *testing.T, version uint32, chunks ...[]byte) []byte {
	t.Helper()

	var body bytes.Buffer
	types := []uint32{gltfGLBChunkJSON, gltfGLBChunkBIN}
	for i, c := range chunks {
		for len(c)%4 != 0 {
			c = append(c, ' ')
		}
		binary.Write(&body, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(c)), ChunkType: types[i]})
		body.Write(c)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, gltfGLBHeader{
		Magic:   gltfGLBMagic,
		Version: version,
		Length:  uint32(12 + body.Len()),
	})
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestLoadReaderExtractsSkinJoints(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)

	rig, err := l.LoadReader("avatar", strings.NewReader(riggedDoc), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}

	if rig.Name() != "avatar" || rig.Len() != 3 {
		t.Fatalf("rig %q has %d joints", rig.Name(), rig.Len())
	}

	names := rig.Names()
	if names[0] != "mixamorigHips" {
		t.Errorf("first joint = %q, want root first", names[0])
	}

	hips, _ := rig.Joint("mixamorigHips")
	if hips.Parent != "" || hips.Position[1] != 1 {
		t.Errorf("hips = %+v", hips)
	}

	spine, ok := rig.Joint("mixamorigSpine")
	if !ok || spine.Parent != "mixamorigHips" {
		t.Fatalf("spine = %+v", spine)
	}
	if !near(spine.Rotation[2], math.Pi/2) {
		t.Errorf("spine rotation = %v, want z = pi/2", spine.Rotation)
	}

	hand, ok := rig.Joint("mixamorigRightHand")
	if !ok || hand.Parent != "mixamorigSpine" || !near(hand.Position[0], 0.5) {
		t.Errorf("hand = %+v", hand)
	}
}

func TestLoadReaderWithoutSkinUsesNamedNodes(t *testing.T) {
	doc := `{
	  "asset": {"version": "2.0"},
	  "nodes": [
	    {"name": "Root", "children": [1, 2]},
	    {"name": "Arm"},
	    {"name": "Mesh", "mesh": 0},
	    {}
	  ]
	}`

	rig, err := NewLoader(BackendTypeGLTF).LoadReader("plain", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if rig.Len() != 2 {
		t.Fatalf("joints = %v", rig.Names())
	}
	if p, _ := rig.Parent("Arm"); p != "Root" {
		t.Errorf("Arm parent = %q", p)
	}
}

func TestParseErrors(t *testing.T) {
	validJSON := []byte(riggedDoc)

	tests := []struct {
		name  string
		data  []byte
		isGLB bool
		want  error
	}{
		{"gltf version", []byte(`{"asset": {"version": "1.0"}}`), false, errInvalidGLTFVersion},
		{"no joints", []byte(`{"asset": {"version": "2.0"}, "nodes": [{"mesh": 0}]}`), false, errNoJoints},
		{"glb too small", []byte("glTF"), true, errGLBTooSmall},
		{"glb magic", append([]byte("nope"), buildGLB(t, 2, validJSON)[4:]...), true, errInvalidGLBMagic},
		{"glb version", buildGLB(t, 1, validJSON), true, errInvalidGLBVersion},
		{"glb missing json", buildGLB(t, 2)[:12], true, errMissingJSONChunk},
		{"bad data uri", []byte(`{"asset": {"version": "2.0"}, "buffers": [{"uri": "data:nocomma", "byteLength": 1}]}`), false, errInvalidBufferURI},
		{"short buffer", []byte(`{"asset": {"version": "2.0"}, "buffers": [{"uri": "data:;base64,AAAA", "byteLength": 9}]}`), false, errBufferSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(BackendTypeGLTF).LoadReader(tt.name, bytes.NewReader(tt.data), tt.isGLB)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadGLBWithBinaryChunk(t *testing.T) {
	doc := `{
	  "asset": {"version": "2.0"},
	  "nodes": [{"name": "Hips", "children": [1]}, {"name": "Spine"}],
	  "buffers": [{"byteLength": 4}],
	  "skins": [{"joints": [0, 1]}]
	}`
	glb := buildGLB(t, 2, []byte(doc), []byte{1, 2, 3, 4})

	path := filepath.Join(t.TempDir(), "avatar.glb")
	if err := os.WriteFile(path, glb, 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(BackendTypeGLTF)
	rig, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rig.Name() != "avatar" || rig.Len() != 2 {
		t.Errorf("rig %q with %d joints", rig.Name(), rig.Len())
	}
}

func TestLoadResolvesExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	doc := `{
	  "asset": {"version": "2.0"},
	  "nodes": [{"name": "Hips"}],
	  "buffers": [{"uri": "avatar.bin", "byteLength": 2}]
	}`
	if err := os.WriteFile(filepath.Join(dir, "avatar.bin"), []byte{0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "avatar.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader(BackendTypeGLTF).Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "avatar.bin")); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(BackendTypeGLTF).Load(path); err == nil {
		t.Error("missing external buffer should fail")
	}
}

func TestLoaderCachesTemplatesAndHandsOutClones(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)

	first, err := l.LoadReader("avatar", strings.NewReader(riggedDoc), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set("mixamorigSpine", "rotation", "x", 1); err != nil {
		t.Fatal(err)
	}

	// A second read of the same key must not touch the reader.
	second, err := l.LoadReader("avatar", strings.NewReader("not json"), false)
	if err != nil {
		t.Fatalf("cached LoadReader: %v", err)
	}
	if v, _ := second.Get("mixamorigSpine", "rotation", "x"); v != 0 {
		t.Errorf("cached rig shares state with an earlier copy: x = %v", v)
	}

	if l.Get("missing") != nil {
		t.Error("Get of unknown key should be nil")
	}
	if keys := l.Rigs(); len(keys) != 1 || keys[0] != "avatar" {
		t.Errorf("Rigs = %v", keys)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	if _, err := NewLoader(BackendTypeGLTF).Load("avatar.fbx"); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestSanitizeNodeName(t *testing.T) {
	tests := map[string]string{
		"mixamorig:RightHand": "mixamorigRightHand",
		"Left Arm.001":        "Left_Arm001",
		"a/b[c]":              "abc",
	}
	for in, want := range tests {
		if got := sanitizeNodeName(in); got != want {
			t.Errorf("sanitizeNodeName(%q) = %q, want %q", in, got, want)
		}
	}
}
