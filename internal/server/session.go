package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
	"github.com/synapz-learn/signavatar/internal/history"
)

const (
	outboundBuffer = 256
	maxHold        = 10 * time.Second
	glossTimeout   = 15 * time.Second

	// envelopeSlack leaves room for the JSON around the submitted text.
	envelopeSlack = 1024
)

// session is one live signing connection. It owns a rig clone and a sequencer and streams
// caption, state and joint updates back to the client.
type session struct {
	srv    *Server
	conn   *websocket.Conn
	id     string
	logger *slog.Logger

	ctx context.Context
	out chan []byte
	bg  sync.WaitGroup

	mu       sync.Mutex
	rig      skeleton.Skeleton
	resetter pose.Resetter
	seq      sequencer.Sequencer
	frameSeq uint64

	// Playback settings applied when the next sequencer is built.
	stepSize float32
	hold     time.Duration

	// active is the history entry of the sequence currently playing.
	active *history.Entry
}

func newSession(srv *Server, conn *websocket.Conn) *session {
	id := newSessionID()
	s := &session{
		srv:      srv,
		conn:     conn,
		id:       id,
		logger:   srv.logger.With("session", id),
		out:      make(chan []byte, outboundBuffer),
		resetter: pose.NewResetter(),
		stepSize: srv.stepSize,
		hold:     srv.hold,
	}
	if srv.rig != nil {
		s.rig = srv.rig.Clone()
	}
	s.seq = s.newSequencer()
	return s
}

func (s *session) newSequencer() sequencer.Sequencer {
	options := []sequencer.SequencerBuilderOption{
		sequencer.WithStepSize(s.stepSize),
		sequencer.WithHold(s.hold),
		sequencer.WithLogger(s.logger),
		sequencer.WithRenderer(sequencer.FrameRendererFunc(s.emitFrame)),
		sequencer.WithCaptionCallback(s.onCaption),
		sequencer.WithStateCallback(s.onState),
	}
	if s.srv.resetOnPreempt {
		options = append(options, sequencer.WithPoseReset(s.resetter, sequencer.ResetOnPreempt))
	}
	return sequencer.NewSequencer(s.srv.table, s.rig, options...)
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	s.ctx = ctx

	s.logger.Info("session opened")
	s.conn.SetReadLimit(2*s.srv.maxTextBytes + envelopeSlack)
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := s.writeLoop(ctx); err != nil {
			s.logger.Debug("session writer stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		s.tickLoop(ctx)
	}()

	ready := readyMessage{
		Type:      msgReady,
		SessionID: s.id,
		Joints:    []string{},
		StepSize:  s.stepSize,
		HoldMS:    s.hold.Milliseconds(),
		TickRate:  s.srv.tickRate,
	}
	if s.rig != nil {
		ready.Rig, ready.Joints = s.rig.Name(), s.rig.Names()
	}
	s.send(ready)

	err := s.readLoop(ctx)
	cancel()
	wg.Wait()

	s.mu.Lock()
	s.closeEntry(true)
	s.mu.Unlock()
	s.bg.Wait()

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Debug("session read ended", "error", err)
	}
	s.logger.Info("session closed")
}

func (s *session) extendReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(2*s.srv.pingInterval + s.srv.writeTimeout))
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		s.extendReadDeadline()
		if messageType != websocket.TextMessage {
			s.sendError(codeBadRequest, "messages must be JSON text frames")
			continue
		}

		kind, err := decodeClientMessage(data)
		if err != nil {
			s.sendError(codeBadRequest, err.Error())
			continue
		}
		switch kind {
		case msgSubmit:
			var msg submitMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.sendError(codeBadRequest, "invalid submit message")
				continue
			}
			s.handleSubmit(ctx, msg)
		case msgConfigure:
			var msg configureMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.sendError(codeBadRequest, "invalid configure message")
				continue
			}
			s.handleConfigure(msg)
		case msgReset:
			s.handleReset()
		default:
			s.sendError(codeUnsupported, fmt.Sprintf("unknown message type %q", kind))
		}
	}
}

func (s *session) handleSubmit(ctx context.Context, msg submitMessage) {
	if int64(len(msg.Text)) > s.srv.maxTextBytes {
		s.sendError(codeTextTooLong, fmt.Sprintf("text exceeds %d bytes", s.srv.maxTextBytes))
		return
	}

	signed := msg.Text
	var glossed string
	if msg.Gloss {
		gctx, cancel := context.WithTimeout(ctx, glossTimeout)
		out, err := s.srv.glosser.Gloss(gctx, msg.Text)
		cancel()
		if err != nil {
			s.logger.Warn("gloss failed", "error", err)
			s.sendError(codeGlossFailed, "could not gloss text")
			return
		}
		glossed = out
		signed = out
	}

	// Blank text leaves the running sequence, its diagnostics and its history entry alone.
	if strings.TrimSpace(signed) == "" {
		s.send(acceptedMessage{Type: msgAccepted, Text: msg.Text, Signed: signed, Report: sequencer.Report{Ignored: true}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.StepSize() != s.stepSize || s.seq.Hold() != s.hold {
		s.rebuild()
	}
	s.closeEntry(true)

	s.seq.ResetDiagnostics()
	report := s.seq.Submit(signed)
	if !report.Ignored {
		s.active = &history.Entry{
			SessionID: s.id,
			Text:      msg.Text,
			Gloss:     glossed,
			Units:     report.Units,
		}
	}
	s.send(acceptedMessage{Type: msgAccepted, Text: msg.Text, Signed: signed, Report: report})
}

func (s *session) handleConfigure(msg configureMessage) {
	if msg.StepSize != nil && (*msg.StepSize <= 0 || *msg.StepSize > 1) {
		s.sendError(codeInvalidValue, "step_size must be in (0, 1]")
		return
	}
	if msg.HoldMS != nil && (*msg.HoldMS < 0 || time.Duration(*msg.HoldMS)*time.Millisecond > maxHold) {
		s.sendError(codeInvalidValue, "hold_ms must be in [0, 10000]")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.StepSize != nil {
		s.stepSize = *msg.StepSize
	}
	if msg.HoldMS != nil {
		s.hold = time.Duration(*msg.HoldMS) * time.Millisecond
	}
}

func (s *session) handleReset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeEntry(true)
	wasIdle := s.seq.State() == sequencer.StateIdle
	s.seq = s.newSequencer()
	s.resetter.Reset(s.rig)
	s.emitFrame()

	s.send(captionMessage{Type: msgCaption, Text: ""})
	if !wasIdle {
		s.send(stateMessage{Type: msgState, State: sequencer.StateIdle.String()})
	}
}

// rebuild replaces the sequencer so new playback settings take effect. The caller holds s.mu.
func (s *session) rebuild() {
	interrupted := s.seq.Running()
	s.closeEntry(true)
	s.seq = s.newSequencer()
	if interrupted && s.srv.resetOnPreempt {
		s.resetter.Reset(s.rig)
	}
	s.logger.Debug("playback settings applied", "step_size", s.stepSize, "hold", s.hold)
}

func (s *session) tickLoop(ctx context.Context) {
	ticker := s.srv.clock.Ticker(time.Duration(float64(time.Second) / s.srv.tickRate))
	defer ticker.Stop()
	last := s.srv.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.srv.clock.Now()
			dt := now.Sub(last)
			last = now

			s.mu.Lock()
			if s.seq.Running() {
				s.seq.Tick(dt)
			}
			s.mu.Unlock()
		}
	}
}

// emitFrame sends the joints changed since the previous frame. The caller holds s.mu.
func (s *session) emitFrame() {
	if s.rig == nil {
		return
	}
	changed := s.rig.Changed()
	if len(changed) == 0 {
		return
	}
	s.frameSeq++
	s.send(frameMessage{Type: msgFrame, Seq: s.frameSeq, Joints: changed})
}

func (s *session) onCaption(caption string) {
	s.send(captionMessage{Type: msgCaption, Text: caption})
}

// onState runs from Submit or Tick, so the caller holds s.mu.
func (s *session) onState(state sequencer.State) {
	s.send(stateMessage{Type: msgState, State: state.String()})
	if state != sequencer.StateIdle {
		return
	}
	d := s.seq.Diagnostics()
	s.send(diagnosticsMessage{Type: msgDiagnostics, Degraded: d.Degraded(), Diagnostics: d})
	s.closeEntry(false)
}

// closeEntry records the active sequence, if any. The caller holds s.mu.
func (s *session) closeEntry(interrupted bool) {
	if s.active == nil {
		return
	}
	e := *s.active
	s.active = nil

	d := s.seq.Diagnostics()
	e.Preempted = interrupted
	e.MissingJoints = d.MissingJoints + d.MissingProperties
	e.MalformedInstructions = d.Malformed
	e.UnmappedTokens = d.UnmappedTokens + d.UnmappedChars

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.history.Record(ctx, e); err != nil {
			s.logger.Warn("record history", "error", err)
		}
	}()
}

func (s *session) sendError(code, message string) {
	s.send(errorMessage{Type: msgError, Code: code, Message: message})
}

// send queues a message for the writer. It gives up once the session is closing.
func (s *session) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode message", "error", err)
		return
	}
	select {
	case s.out <- data:
	case <-s.ctx.Done():
	}
}

func (s *session) writeLoop(ctx context.Context) error {
	defer s.conn.Close()

	ping := s.srv.clock.Ticker(s.srv.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			deadline := time.Now().Add(s.srv.writeTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return nil
		case <-ping.C:
			deadline := time.Now().Add(s.srv.writeTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case data := <-s.out:
			if err := s.write(data); err != nil {
				return err
			}
		}
	}
}

// flush writes what is already queued, bounded so a stalled client cannot hold shutdown.
func (s *session) flush() {
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case data := <-s.out:
			if err := s.write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) write(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.srv.writeTimeout)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func newSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("s%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
