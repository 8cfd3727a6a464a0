package sequencer

import (
	"github.com/synapz-learn/signavatar/engine/signs"
)

// State is the playback state of a Sequencer.
type State int

const (
	// StateIdle means the queue is drained and no playback loop is active.
	StateIdle State = iota

	// StatePlaying means the front unit is being applied.
	StatePlaying

	// StateHolding means a readability pause is running after a completed instruction list.
	StateHolding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateHolding:
		return "holding"
	}
	return "unknown"
}

// UnitKind distinguishes the two kinds of queued animation unit.
type UnitKind int

const (
	// UnitTextMarker appends text to the caption.
	UnitTextMarker UnitKind = iota

	// UnitInstructionList moves joints until every instruction resolves.
	UnitInstructionList
)

// Unit is one entry of the animation queue.
type Unit struct {
	Kind UnitKind

	// Token is the word or letter the unit belongs to.
	Token string

	// Text is the caption fragment of a text marker.
	Text string

	// Instructions are the unresolved instructions of an instruction list.
	Instructions []signs.Instruction
}

func textMarker(token, text string) Unit {
	return Unit{Kind: UnitTextMarker, Token: token, Text: text}
}

func instructionList(token string, phase []signs.Instruction) Unit {
	return Unit{
		Kind:         UnitInstructionList,
		Token:        token,
		Instructions: append([]signs.Instruction(nil), phase...),
	}
}
