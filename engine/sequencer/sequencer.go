package sequencer

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

const (
	// DefaultStepSize is the per-frame rotation increment in radians.
	DefaultStepSize float32 = 0.1

	// DefaultHold is the pause inserted after each completed instruction list.
	DefaultHold = 800 * time.Millisecond
)

// ResetPolicy selects when the sequencer returns the rig to its rest pose.
type ResetPolicy int

const (
	// ResetNever leaves joints where the previous sequence put them.
	ResetNever ResetPolicy = iota

	// ResetOnPreempt resets only when a submission interrupts a sequence in progress.
	ResetOnPreempt

	// ResetOnSubmit resets before every new sequence.
	ResetOnSubmit
)

// FrameRenderer draws the current rig pose. It is called once per playing frame.
type FrameRenderer interface {
	RenderFrame()
}

// FrameRendererFunc adapts a function to FrameRenderer.
type FrameRendererFunc func()

func (f FrameRendererFunc) RenderFrame() { f() }

type sequencerImpl struct {
	mu sync.Mutex

	table    signs.Table
	skeleton skeleton.Skeleton
	logger   *slog.Logger

	stepSize float32
	hold     time.Duration

	resetter    pose.Resetter
	resetPolicy ResetPolicy

	renderer  FrameRenderer
	onCaption func(caption string)
	onState   func(state State)

	queue    []Unit
	holdLeft time.Duration
	running  bool
	state    State
	caption  strings.Builder
	diag     Diagnostics
}

// Sequencer converts text into a queue of caption markers and joint instruction lists and
// plays them against a rig one frame at a time. The host calls Tick once per frame; Submit may
// be called from any goroutine and replaces whatever is queued.
type Sequencer interface {
	// Submit tokenizes text on whitespace and replaces the queue with its animation units.
	// Each token with a word entry yields a "WORD " marker followed by the word's phases;
	// other tokens are fingerspelled, one marker per character (the last one followed by a space)
	// then that character's phases when the table has them. Whitespace-only text is ignored.
	//
	// Parameters:
	//   - text: the text to sign
	//
	// Returns:
	//   - Report: what was enqueued and which tokens could not be signed
	Submit(text string) Report

	// Tick advances playback by one frame.
	//
	// Parameters:
	//   - dt: time elapsed since the previous frame; counts down any active hold
	//
	// Returns:
	//   - State: the state after this frame
	Tick(dt time.Duration) State

	// State returns the current playback state.
	State() State

	// Running reports whether a playback loop is active.
	Running() bool

	// Caption returns the text revealed so far for the current sequence.
	Caption() string

	// Pending returns the number of queued units.
	Pending() int

	// Queue returns a copy of the queued units, front first.
	Queue() []Unit

	// Diagnostics returns the accumulated problem counters.
	Diagnostics() Diagnostics

	// ResetDiagnostics clears the counters and issue log.
	ResetDiagnostics()

	// StepSize returns the per-frame increment fixed at construction.
	StepSize() float32

	// Hold returns the pause duration fixed at construction.
	Hold() time.Duration
}

var _ Sequencer = &sequencerImpl{}

// NewSequencer creates a Sequencer over a sign table and a rig.
// A nil skeleton is allowed: every instruction then resolves as a missing joint,
// matching an avatar that failed to load.
//
// Parameters:
//   - table: the bone animation table
//   - skel: the rig to animate
//   - options: functional options (step size, hold, callbacks, logger)
//
// Returns:
//   - Sequencer: the idle sequencer
func NewSequencer(table signs.Table, skel skeleton.Skeleton, options ...SequencerBuilderOption) Sequencer {
	s := &sequencerImpl{
		table:    table,
		skeleton: skel,
		logger:   slog.Default(),
		stepSize: DefaultStepSize,
		hold:     DefaultHold,
		state:    StateIdle,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.stepSize <= 0 {
		s.stepSize = DefaultStepSize
	}
	if s.hold < 0 {
		s.hold = 0
	}
	return s
}

func (s *sequencerImpl) Submit(text string) Report {
	tokens := strings.Fields(strings.ToUpper(text))
	if len(tokens) == 0 {
		return Report{Ignored: true}
	}

	queue, report := s.compile(tokens)

	s.mu.Lock()
	report.Preempted = len(s.queue) > 0
	if report.Preempted {
		s.diag.Preempted++
	}
	for _, t := range report.UnmappedTokens {
		s.diag.record(Issue{Kind: IssueUnmappedToken, Token: t})
	}
	for _, c := range report.UnmappedChars {
		s.diag.record(Issue{Kind: IssueUnmappedChar, Token: c})
	}

	reset := s.resetter != nil &&
		(s.resetPolicy == ResetOnSubmit || (s.resetPolicy == ResetOnPreempt && report.Preempted))
	if reset {
		s.resetter.Reset(s.skeleton)
	}

	s.queue = queue
	s.holdLeft = 0
	s.caption.Reset()
	s.running = true
	changed := s.setState(StatePlaying)
	onCaption, onState := s.onCaption, s.onState
	s.mu.Unlock()

	s.logger.Debug("sign sequence submitted",
		"tokens", report.Tokens,
		"units", report.Units,
		"preempted", report.Preempted,
		"unmapped", len(report.UnmappedTokens)+len(report.UnmappedChars),
	)

	if onCaption != nil {
		onCaption("")
	}
	if changed && onState != nil {
		onState(StatePlaying)
	}
	return report
}

// compile builds the animation queue for upper-cased tokens.
func (s *sequencerImpl) compile(tokens []string) ([]Unit, Report) {
	report := Report{Tokens: len(tokens)}
	var queue []Unit

	for _, token := range tokens {
		if s.table != nil {
			if sign, ok := s.table.Word(token); ok {
				queue = append(queue, textMarker(token, token+" "))
				for _, phase := range sign.Phases {
					queue = append(queue, instructionList(token, phase))
				}
				continue
			}
		}

		chars := []rune(token)
		mapped := 0
		for i, ch := range chars {
			text := string(ch)
			if i == len(chars)-1 {
				text += " "
			}
			queue = append(queue, textMarker(string(ch), text))

			var sign signs.Sign
			ok := false
			if s.table != nil {
				sign, ok = s.table.Letter(ch)
			}
			if !ok {
				report.UnmappedChars = append(report.UnmappedChars, string(ch))
				continue
			}
			mapped++
			for _, phase := range sign.Phases {
				queue = append(queue, instructionList(string(ch), phase))
			}
		}
		if mapped == 0 {
			report.UnmappedTokens = append(report.UnmappedTokens, token)
		}
	}

	report.Units = len(queue)
	return queue, report
}

func (s *sequencerImpl) Tick(dt time.Duration) State {
	s.mu.Lock()

	if s.holdLeft > 0 {
		s.holdLeft -= dt
		if s.holdLeft < 0 {
			s.holdLeft = 0
		}
	}

	if len(s.queue) == 0 {
		stopped := s.running
		s.running = false
		changed := s.setState(StateIdle)
		onState := s.onState
		s.mu.Unlock()

		if stopped {
			s.logger.Debug("sign sequence finished")
		}
		if changed && onState != nil {
			onState(StateIdle)
		}
		return StateIdle
	}

	var captionUpdate *string
	if s.holdLeft == 0 {
		front := &s.queue[0]
		switch front.Kind {
		case UnitTextMarker:
			s.caption.WriteString(front.Text)
			c := s.caption.String()
			captionUpdate = &c
			s.queue = s.queue[1:]
		case UnitInstructionList:
			front.Instructions = s.advance(front.Token, front.Instructions)
			if len(front.Instructions) == 0 {
				s.holdLeft = s.hold
				s.queue = s.queue[1:]
			}
		}
	}

	next := StatePlaying
	if s.holdLeft > 0 {
		next = StateHolding
	}
	changed := s.setState(next)
	onCaption, onState, renderer := s.onCaption, s.onState, s.renderer
	s.mu.Unlock()

	if captionUpdate != nil && onCaption != nil {
		onCaption(*captionUpdate)
	}
	if changed && onState != nil {
		onState(next)
	}
	if renderer != nil {
		renderer.RenderFrame()
	}
	return next
}

// advance steps every unresolved instruction once and returns those still pending.
// The caller holds the lock.
func (s *sequencerImpl) advance(token string, instructions []signs.Instruction) []signs.Instruction {
	pending := instructions[:0]
	for _, in := range instructions {
		if s.step(token, in) {
			pending = append(pending, in)
		}
	}
	return pending
}

// step applies one increment and reports whether the instruction is still unresolved.
func (s *sequencerImpl) step(token string, in signs.Instruction) bool {
	if !in.Valid() {
		s.drop(IssueMalformed, token, in, in.Malformed)
		return false
	}
	if l := float64(in.Limit); math.IsNaN(l) || math.IsInf(l, 0) {
		s.drop(IssueMalformed, token, in, "limit is not finite")
		return false
	}
	if s.skeleton == nil {
		s.drop(IssueMissingJoint, token, in, "no skeleton loaded")
		return false
	}

	v, err := s.skeleton.Get(in.Joint, in.Property, in.Axis)
	if err != nil {
		kind := IssueMissingProperty
		if errors.Is(err, skeleton.ErrJointNotFound) {
			kind = IssueMissingJoint
		}
		s.drop(kind, token, in, err.Error())
		return false
	}

	switch in.Direction {
	case signs.Increase:
		if v >= in.Limit {
			return false
		}
		v = min(v+s.stepSize, in.Limit)
	case signs.Decrease:
		if v <= in.Limit {
			return false
		}
		v = max(v-s.stepSize, in.Limit)
	default:
		s.drop(IssueMalformed, token, in, "unknown direction")
		return false
	}

	if err := s.skeleton.Set(in.Joint, in.Property, in.Axis, v); err != nil {
		s.drop(IssueMissingProperty, token, in, err.Error())
		return false
	}
	return v != in.Limit
}

func (s *sequencerImpl) drop(kind IssueKind, token string, in signs.Instruction, detail string) {
	s.diag.record(Issue{Kind: kind, Token: token, Instruction: &in, Detail: detail})
	s.logger.Debug("sign instruction dropped", "kind", string(kind), "token", token, "detail", detail)
}

// setState updates the state and reports whether it changed. The caller holds the lock.
func (s *sequencerImpl) setState(next State) bool {
	if s.state == next {
		return false
	}
	s.state = next
	return true
}

func (s *sequencerImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sequencerImpl) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *sequencerImpl) Caption() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caption.String()
}

func (s *sequencerImpl) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *sequencerImpl) Queue() []Unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Unit, len(s.queue))
	for i, u := range s.queue {
		u.Instructions = append([]signs.Instruction(nil), u.Instructions...)
		out[i] = u
	}
	return out
}

func (s *sequencerImpl) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diag.clone()
}

func (s *sequencerImpl) ResetDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag = Diagnostics{}
}

func (s *sequencerImpl) StepSize() float32 {
	return s.stepSize
}

func (s *sequencerImpl) Hold() time.Duration {
	return s.hold
}
