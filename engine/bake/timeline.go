package bake

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// Job is one text to bake.
type Job struct {
	// ID names the timeline; defaults to the job's index.
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Frame is the observable result of one sequencer tick.
type Frame struct {
	Index   int    `json:"index"`
	AtMS    int64  `json:"at_ms"`
	State   string `json:"state"`
	Caption string `json:"caption"`

	// Joints holds only the rotations modified during this frame.
	Joints skeleton.Pose `json:"joints,omitempty"`
}

// Timeline is the frame-by-frame record of signing one text.
type Timeline struct {
	ID          string                `json:"id"`
	Text        string                `json:"text"`
	Rig         string                `json:"rig"`
	FrameRate   float64               `json:"frame_rate"`
	Frames      []Frame               `json:"frames"`
	Truncated   bool                  `json:"truncated,omitempty"`
	Caption     string                `json:"caption"`
	Report      sequencer.Report      `json:"report"`
	Diagnostics sequencer.Diagnostics `json:"diagnostics"`
}

// DurationMS returns the playback length up to the last recorded frame.
func (t Timeline) DurationMS() int64 {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].AtMS
}

// WriteJSON encodes timelines as an indented JSON array.
//
// Parameters:
//   - w: destination
//   - timelines: the baked timelines
//
// Returns:
//   - error: an error if encoding or writing fails
func WriteJSON(w io.Writer, timelines []Timeline) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(timelines); err != nil {
		return fmt.Errorf("encode timelines: %w", err)
	}
	return nil
}

// ReadJSON decodes timelines written by WriteJSON.
func ReadJSON(r io.Reader) ([]Timeline, error) {
	var out []Timeline
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode timelines: %w", err)
	}
	return out, nil
}
