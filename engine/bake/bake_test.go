package bake

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

const testTable = `
letters:
  "H":
    - - [mixamorigRightHand, rotation, z, 0.3, "+"]
  "I":
    - - [mixamorigRightHandPinky1, rotation, z, -0.2, "-"]
words:
  "YES":
    - - [mixamorigRightForeArm, rotation, x, 0.4, "+"]
    - - [mixamorigRightForeArm, rotation, x, 0, "-"]
`

func newTestBaker(t *testing.T, options ...BakerBuilderOption) (Baker, skeleton.Skeleton) {
	t.Helper()
	table, err := signs.Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	rig := skeleton.NewMixamoRig()
	options = append([]BakerBuilderOption{WithSequencerOptions(sequencer.WithHold(0))}, options...)
	b, err := NewBaker(table, rig, options...)
	if err != nil {
		t.Fatalf("NewBaker: %v", err)
	}
	t.Cleanup(b.Close)
	return b, rig
}

func TestBakePreservesJobOrder(t *testing.T) {
	b, rig := newTestBaker(t, WithWorkers(3))
	before := rig.Snapshot()

	jobs := []Job{{Text: "hi"}, {ID: "yes", Text: "yes"}, {Text: "   "}, {Text: "hi yes"}}
	timelines, err := b.Bake(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if len(timelines) != len(jobs) {
		t.Fatalf("timelines = %d", len(timelines))
	}

	wantCaptions := []string{"HI ", "YES ", "", "HI YES "}
	wantIDs := []string{"0", "yes", "2", "3"}
	for i, tl := range timelines {
		if tl.Caption != wantCaptions[i] {
			t.Errorf("timeline %d caption = %q, want %q", i, tl.Caption, wantCaptions[i])
		}
		if tl.ID != wantIDs[i] {
			t.Errorf("timeline %d id = %q, want %q", i, tl.ID, wantIDs[i])
		}
	}

	if !timelines[2].Report.Ignored || len(timelines[2].Frames) != 0 {
		t.Errorf("whitespace job = %+v", timelines[2])
	}

	after := rig.Snapshot()
	for name, r := range before {
		if after[name] != r {
			t.Fatalf("template rig joint %s changed", name)
		}
	}
}

func TestBakeRecordsFrames(t *testing.T) {
	b, _ := newTestBaker(t, WithFrameRate(50))

	timelines, err := b.Bake(context.Background(), []Job{{Text: "yes"}})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	tl := timelines[0]

	if tl.FrameRate != 50 || tl.Rig == "" {
		t.Errorf("header = %+v", tl)
	}
	if tl.Frames[0].Caption != "YES " {
		t.Errorf("first caption = %q", tl.Frames[0].Caption)
	}

	var peak float32
	moved := 0
	for i, f := range tl.Frames {
		if f.Index != i || f.AtMS != int64(20*(i+1)) {
			t.Fatalf("frame %d = index %d at %dms", i, f.Index, f.AtMS)
		}
		if r, ok := f.Joints["mixamorigRightForeArm"]; ok {
			moved++
			if r[0] > peak {
				peak = r[0]
			}
		}
	}
	if peak < 0.4-1e-5 || peak > 0.4+1e-5 {
		t.Errorf("forearm peak = %v, want 0.4", peak)
	}
	if moved == 0 {
		t.Error("no frame recorded the forearm")
	}
	if tl.DurationMS() != int64(20*len(tl.Frames)) {
		t.Errorf("duration = %d", tl.DurationMS())
	}
}

func TestBakeTruncatesAtFrameCap(t *testing.T) {
	b, _ := newTestBaker(t, WithMaxFrames(3))

	timelines, err := b.Bake(context.Background(), []Job{{Text: "hi yes"}})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if !timelines[0].Truncated || len(timelines[0].Frames) != 3 {
		t.Errorf("truncated = %v frames = %d", timelines[0].Truncated, len(timelines[0].Frames))
	}
}

func TestBakeStopsOnCancelledContext(t *testing.T) {
	b, _ := newTestBaker(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := b.Bake(ctx, []Job{{Text: "hi"}, {Text: "yes"}})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Bake did not return")
	}
}

func TestTimelineJSONRoundTrip(t *testing.T) {
	b, _ := newTestBaker(t)
	timelines, err := b.Bake(context.Background(), []Job{{Text: "hi"}})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, timelines); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(back) != 1 || back[0].Caption != "HI " || len(back[0].Frames) != len(timelines[0].Frames) {
		t.Errorf("round trip = %+v", back)
	}
}

func TestNewBakerRejectsNilRig(t *testing.T) {
	if _, err := NewBaker(signs.Default(), nil); !errors.Is(err, errNilRig) {
		t.Errorf("err = %v", err)
	}
}

func TestCloseStopsBaker(t *testing.T) {
	b, _ := newTestBaker(t)
	if _, err := b.Bake(context.Background(), []Job{{Text: "hi"}}); err != nil {
		t.Fatalf("Bake: %v", err)
	}

	b.Close()
	b.Close()
	if _, err := b.Bake(context.Background(), []Job{{Text: "hi"}}); !errors.Is(err, errClosed) {
		t.Errorf("Bake after Close err = %v", err)
	}
}
