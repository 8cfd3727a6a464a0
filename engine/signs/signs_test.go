package signs

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0", 0},
		{"1.25", 1.25},
		{"-0.5", -0.5},
		{"pi", math.Pi},
		{"-pi", -math.Pi},
		{"pi/2", math.Pi / 2},
		{"-pi/9", -math.Pi / 9},
		{"2pi/3", 2 * math.Pi / 3},
		{"2*pi/3", 2 * math.Pi / 3},
		{"PI/2.5", math.Pi / 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLimit(tt.in)
			if err != nil {
				t.Fatalf("ParseLimit(%q): %v", tt.in, err)
			}
			if math.Abs(float64(got)-tt.want) > 1e-5 {
				t.Errorf("ParseLimit(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "tau", "pi/0", "xpi", "pi/abc", "nan", "NaN", "inf", "-inf", "+Inf", "infpi", "nanpi/2", "1e39pi"} {
		if _, err := ParseLimit(bad); err == nil {
			t.Errorf("ParseLimit(%q) should fail", bad)
		}
	}
}

const sampleTable = `
letters:
  "h":
    - - [mixamorigRightHand, rotation, z, "pi/2", "+"]
    - - [mixamorigRightHand, rotation, z, 0, "-"]
  "E":
    - - [mixamorigRightHandIndex1, rotation, z, 1]
      - [mixamorigRightHandIndex2, rotation, z, 1, "~"]
      - [mixamorigRightHandIndex3, rotation, z, "lots", "+"]
      - [mixamorigRightHandMiddle1, rotation, z, 1, "+"]
words:
  world:
    - - [mixamorigRightArm, rotation, x, 0.5, "+"]
`

func TestParseFlagsNonFiniteLimits(t *testing.T) {
	doc := `
letters:
  "A":
    - - [mixamorigRightHand, rotation, z, nan, "+"]
      - [mixamorigRightHand, rotation, x, inf, "+"]
      - [mixamorigRightHand, rotation, y, -Infinity, "-"]
      - [mixamorigRightHand, rotation, y, .nan, "+"]
      - [mixamorigRightHand, rotation, y, -.inf, "-"]
      - [mixamorigRightArm, rotation, x, 0.4, "+"]
`
	table, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, ok := table.Letter('A')
	if !ok {
		t.Fatal("letter A missing")
	}
	if got := len(a.Malformed()); got != 5 {
		t.Errorf("A has %d malformed instructions, want 5: %v", got, a.Phases)
	}
	for _, in := range a.Phases[0] {
		if in.Valid() && (math.IsNaN(float64(in.Limit)) || math.IsInf(float64(in.Limit), 0)) {
			t.Errorf("non-finite limit accepted: %v", in)
		}
	}
}

func TestParseFlagsMalformedInstructions(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	e, ok := table.Letter('e')
	if !ok {
		t.Fatal("letter E missing")
	}
	if got := len(e.Malformed()); got != 3 {
		t.Errorf("E has %d malformed instructions, want 3", got)
	}
	if e.Instructions() != 4 {
		t.Errorf("E keeps %d instructions, want 4", e.Instructions())
	}

	h, ok := table.Letter('H')
	if !ok || len(h.Phases) != 2 {
		t.Fatalf("letter H = %+v, %v", h, ok)
	}
	first := h.Phases[0][0]
	if first.Joint != "mixamorigRightHand" || first.Direction != Increase || math.Abs(float64(first.Limit)-math.Pi/2) > 1e-5 {
		t.Errorf("H first instruction = %v", first)
	}

	if _, ok := table.Word("World"); !ok {
		t.Error("word lookup should be case-insensitive")
	}
}

func TestParseRejectsStructuralErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "letters: [",
		"long letter":   "letters:\n  AB:\n    - - [a, rotation, x, 1, \"+\"]\n",
		"spaced word":   "words:\n  \"TWO WORDS\":\n    - - [a, rotation, x, 1, \"+\"]\n",
		"empty content": "letters: {}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Errorf("Parse should fail for %s", name)
			}
		})
	}
}

func TestDefaultTableCoversAlphabet(t *testing.T) {
	table := Default()

	letters := table.Letters()
	if len(letters) != 26 {
		t.Fatalf("default table has %d letters, want 26", len(letters))
	}
	for _, r := range letters {
		s, _ := table.Letter(r)
		if len(s.Phases) < 2 {
			t.Errorf("letter %c has %d phases, want pose and release", r, len(s.Phases))
		}
		if m := s.Malformed(); len(m) > 0 {
			t.Errorf("letter %c has malformed instructions: %v", r, m)
		}
	}

	for _, w := range []string{"HOME", "PERSON", "TIME", "YOU", "THANKS"} {
		s, ok := table.Word(w)
		if !ok || s.Instructions() == 0 {
			t.Errorf("default word %s missing or empty", w)
		}
	}
}

func TestMergeAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	overlay := "words:\n  HOME:\n    - - [mixamorigHead, rotation, x, 0.2, \"+\"]\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	o, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	merged := Merge(Default(), o)
	home, _ := merged.Word("HOME")
	if home.Instructions() != 1 || home.Phases[0][0].Joint != "mixamorigHead" {
		t.Errorf("overlay did not replace HOME: %+v", home)
	}
	if len(merged.Letters()) != 26 {
		t.Errorf("merge dropped base letters")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile of missing file should fail")
	}
}
