package sequencer

import (
	"math"
	"testing"
	"time"
	"unicode"

	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

const frame = 16 * time.Millisecond

const testTable = `
letters:
  "H":
    - - [mixamorigRightHand, rotation, z, 0.3, "+"]
  "E":
    - - [mixamorigRightHand, rotation, z, 0, "-"]
  "L":
    - - [mixamorigRightHandIndex1, rotation, z, 0.2, "+"]
  "O":
    - - [mixamorigRightHandIndex1, rotation, z, 0, "-"]
  "X":
    - - [mixamorigTail, rotation, z, 1, "+"]
      - [mixamorigRightHand, quaternion, z, 1, "+"]
      - [mixamorigRightHand, rotation, z, 1]
      - [mixamorigRightArm, rotation, y, 0.2, "+"]
words:
  "WORLD":
    - - [mixamorigRightArm, rotation, x, 0.5, "+"]
      - [mixamorigRightForeArm, rotation, y, -0.3, "-"]
`

func newTestTable(t *testing.T) signs.Table {
	t.Helper()
	table, err := signs.Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("parse test table: %v", err)
	}
	return table
}

// drain ticks until the sequencer goes idle and returns the number of ticks taken.
func drain(t *testing.T, s Sequencer) int {
	t.Helper()
	for i := 1; i <= 10000; i++ {
		if s.Tick(frame) == StateIdle {
			return i
		}
	}
	t.Fatal("sequencer never went idle")
	return 0
}

func TestSubmitFingerspellsUnmappedWord(t *testing.T) {
	var captions []string
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(),
		WithHold(0),
		WithCaptionCallback(func(c string) { captions = append(captions, c) }),
	)

	report := s.Submit("hello")
	if report.Tokens != 1 || report.Units != 10 {
		t.Fatalf("report = %+v, want 1 token and 10 units", report)
	}

	queue := s.Queue()
	for i, u := range queue {
		want := UnitTextMarker
		if i%2 == 1 {
			want = UnitInstructionList
		}
		if u.Kind != want {
			t.Fatalf("unit %d kind = %v, want %v", i, u.Kind, want)
		}
	}

	drain(t, s)

	want := []string{"", "H", "HE", "HEL", "HELL", "HELLO "}
	if len(captions) != len(want) {
		t.Fatalf("captions = %q, want %q", captions, want)
	}
	for i := range want {
		if captions[i] != want[i] {
			t.Errorf("caption %d = %q, want %q", i, captions[i], want[i])
		}
	}
	if s.Running() {
		t.Error("sequencer still running after drain")
	}
}

func TestSubmitUsesWordEntry(t *testing.T) {
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(), WithHold(0))

	report := s.Submit("HELLO WORLD")
	if report.Units != 12 {
		t.Fatalf("units = %d, want 12", report.Units)
	}

	queue := s.Queue()
	tail := queue[len(queue)-2:]
	if tail[0].Kind != UnitTextMarker || tail[0].Text != "WORLD " {
		t.Errorf("word marker = %+v", tail[0])
	}
	if tail[1].Kind != UnitInstructionList || len(tail[1].Instructions) != 2 {
		t.Errorf("word list = %+v", tail[1])
	}

	drain(t, s)
	if got := s.Caption(); got != "HELLO WORLD " {
		t.Errorf("caption = %q", got)
	}
}

func TestStepsAreMonotoneAndClamped(t *testing.T) {
	rig := skeleton.NewMixamoRig()
	var values []float32
	s := NewSequencer(newTestTable(t), rig,
		WithHold(0),
		WithStepSize(0.07),
		WithRenderer(FrameRendererFunc(func() {
			v, _ := rig.Get("mixamorigRightArm", skeleton.PropertyRotation, "x")
			values = append(values, v)
		})),
	)

	s.Submit("WORLD")
	drain(t, s)

	prev := float32(0)
	for i, v := range values {
		if v < prev {
			t.Fatalf("value %d decreased: %v -> %v", i, prev, v)
		}
		if v > 0.5 {
			t.Fatalf("value %d overshot limit: %v", i, v)
		}
		prev = v
	}
	if prev != 0.5 {
		t.Errorf("final value = %v, want 0.5", prev)
	}

	fore, _ := rig.Get("mixamorigRightForeArm", skeleton.PropertyRotation, "y")
	if fore != -0.3 {
		t.Errorf("forearm = %v, want -0.3", fore)
	}
}

func TestHoldPausesBetweenLists(t *testing.T) {
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(), WithHold(10*frame))

	s.Submit("HE")

	// marker H, then list H resolves in 3 ticks at step 0.1 toward 0.3.
	states := []State{}
	for i := 0; i < 4; i++ {
		states = append(states, s.Tick(frame))
	}
	if states[3] != StateHolding {
		t.Fatalf("states = %v, want holding after list resolves", states)
	}

	holding := 1
	for s.Tick(frame) == StateHolding {
		holding++
		if holding > 100 {
			t.Fatal("hold never cleared")
		}
	}
	if holding != 10 {
		t.Errorf("held for %d frames, want 10", holding)
	}
	if got := s.Caption(); got != "HE" {
		t.Errorf("caption after hold = %q, want HE", got)
	}
}

func TestWhitespaceSubmitIsNoOp(t *testing.T) {
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(), WithHold(0))
	s.Submit("HE")
	s.Tick(frame)

	for _, text := range []string{"", "   ", "\t\n"} {
		r := s.Submit(text)
		if !r.Ignored {
			t.Errorf("Submit(%q) not ignored", text)
		}
	}
	if got := s.Caption(); got != "H" {
		t.Errorf("caption changed to %q", got)
	}
	if s.Pending() != 3 {
		t.Errorf("pending = %d, want 3", s.Pending())
	}

	idle := NewSequencer(newTestTable(t), skeleton.NewMixamoRig())
	idle.Submit(" ")
	if idle.Pending() != 0 || idle.Running() || idle.State() != StateIdle {
		t.Error("whitespace submit started playback")
	}
}

func TestSubmitPreemptsRunningSequence(t *testing.T) {
	rig := skeleton.NewMixamoRig()
	s := NewSequencer(newTestTable(t), rig, WithHold(0))

	s.Submit("HELLO")
	for i := 0; i < 3; i++ {
		s.Tick(frame)
	}
	if s.Caption() != "H" {
		t.Fatalf("caption before preempt = %q", s.Caption())
	}

	report := s.Submit("WORLD")
	if !report.Preempted {
		t.Error("report should flag preemption")
	}
	if s.Caption() != "" {
		t.Errorf("caption not cleared: %q", s.Caption())
	}

	hand, _ := rig.Get("mixamorigRightHand", skeleton.PropertyRotation, "z")
	if hand == 0 {
		t.Error("partial rotation should be left in place without a reset policy")
	}

	drain(t, s)
	if s.Caption() != "WORLD " {
		t.Errorf("caption = %q", s.Caption())
	}
	if d := s.Diagnostics(); d.Preempted != 1 {
		t.Errorf("preempted = %d", d.Preempted)
	}
}

func TestPreemptResetPolicy(t *testing.T) {
	rig := skeleton.NewMixamoRig()
	s := NewSequencer(newTestTable(t), rig, WithHold(0), WithPoseReset(pose.NewResetter(), ResetOnPreempt))

	s.Submit("H")
	s.Tick(frame)
	s.Tick(frame)
	s.Submit("WORLD")

	hand, _ := rig.Get("mixamorigRightHand", skeleton.PropertyRotation, "z")
	if hand != 0 {
		t.Errorf("hand z = %v, want reset to 0", hand)
	}
}

func TestDropsAreRecordedAsDiagnostics(t *testing.T) {
	rig := skeleton.NewMixamoRig()
	s := NewSequencer(newTestTable(t), rig, WithHold(0))

	s.Submit("X")
	drain(t, s)

	d := s.Diagnostics()
	if d.MissingJoints != 1 || d.MissingProperties != 1 || d.Malformed != 1 {
		t.Errorf("diagnostics = %+v", d)
	}
	if !d.Degraded() {
		t.Error("diagnostics should report degraded output")
	}

	arm, _ := rig.Get("mixamorigRightArm", skeleton.PropertyRotation, "y")
	if arm != 0.2 {
		t.Errorf("valid instruction in the same list did not play: %v", arm)
	}

	s.ResetDiagnostics()
	if s.Diagnostics().Degraded() {
		t.Error("ResetDiagnostics did not clear counters")
	}
}

// letterTable serves one hand-built letter, bypassing the YAML parser.
type letterTable struct {
	r    rune
	sign signs.Sign
}

func (l letterTable) Word(string) (signs.Sign, bool) { return signs.Sign{}, false }

func (l letterTable) Letter(r rune) (signs.Sign, bool) {
	if unicode.ToUpper(r) != l.r {
		return signs.Sign{}, false
	}
	return l.sign, true
}

func (l letterTable) Words() []string { return nil }
func (l letterTable) Letters() []rune { return []rune{l.r} }

func TestNonFiniteLimitsAreDropped(t *testing.T) {
	rig := skeleton.NewMixamoRig()
	table := letterTable{r: 'Q', sign: signs.Sign{Token: "Q", Phases: [][]signs.Instruction{{
		{Joint: "mixamorigRightHand", Property: "rotation", Axis: "z", Limit: float32(math.NaN()), Direction: signs.Increase},
		{Joint: "mixamorigRightHand", Property: "rotation", Axis: "x", Limit: float32(math.Inf(1)), Direction: signs.Increase},
		{Joint: "mixamorigRightHand", Property: "rotation", Axis: "y", Limit: float32(math.Inf(-1)), Direction: signs.Decrease},
		{Joint: "mixamorigRightArm", Property: "rotation", Axis: "x", Limit: 0.2, Direction: signs.Increase},
	}}}}
	s := NewSequencer(table, rig, WithHold(0), WithStepSize(0.1))

	s.Submit("q")
	drain(t, s)

	d := s.Diagnostics()
	if d.Malformed != 3 {
		t.Errorf("malformed = %d, want 3", d.Malformed)
	}
	for _, axis := range []string{"x", "y", "z"} {
		v, err := rig.Get("mixamorigRightHand", "rotation", axis)
		if err != nil {
			t.Fatalf("Get %s: %v", axis, err)
		}
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v != 0 {
			t.Errorf("hand %s = %v, want untouched 0", axis, v)
		}
	}
	if v, _ := rig.Get("mixamorigRightArm", "rotation", "x"); v != 0.2 {
		t.Errorf("arm x = %v, want 0.2", v)
	}
}

func TestUnmappedTokensAndCharacters(t *testing.T) {
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(), WithHold(0))

	report := s.Submit("H2 123")
	if len(report.UnmappedTokens) != 1 || report.UnmappedTokens[0] != "123" {
		t.Errorf("unmapped tokens = %v", report.UnmappedTokens)
	}
	if len(report.UnmappedChars) != 4 {
		t.Errorf("unmapped chars = %v", report.UnmappedChars)
	}

	drain(t, s)
	if got := s.Caption(); got != "H2 123 " {
		t.Errorf("unmapped characters should still be captioned, got %q", got)
	}
}

func TestNilSkeletonDegradesGracefully(t *testing.T) {
	s := NewSequencer(newTestTable(t), nil, WithHold(0))

	s.Submit("HE")
	drain(t, s)

	if s.Caption() != "HE " {
		t.Errorf("caption = %q", s.Caption())
	}
	if s.Diagnostics().MissingJoints != 2 {
		t.Errorf("missing joints = %d", s.Diagnostics().MissingJoints)
	}
}

func TestStateCallbackAndIdleRendering(t *testing.T) {
	var transitions []State
	renders := 0
	s := NewSequencer(newTestTable(t), skeleton.NewMixamoRig(),
		WithHold(frame),
		WithStateCallback(func(st State) { transitions = append(transitions, st) }),
		WithRenderer(FrameRendererFunc(func() { renders++ })),
	)

	if s.Tick(frame) != StateIdle || renders != 0 {
		t.Fatal("idle tick should not render")
	}

	s.Submit("E")
	ticks := drain(t, s)

	if renders != ticks-1 {
		t.Errorf("renders = %d, want one per playing tick (%d)", renders, ticks-1)
	}
	want := []State{StatePlaying, StateHolding, StateIdle}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}
