// Command signview opens a window that signs typed text with the avatar skeleton.
//
// Type into the window and press Enter to sign the line. Lines read from stdin are signed too.
// Scroll or the arrow keys zoom, Tab replays the last line and Escape quits.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/synapz-learn/signavatar/common"
	"github.com/synapz-learn/signavatar/engine"
	"github.com/synapz-learn/signavatar/engine/camera"
	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/renderer"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
	"github.com/synapz-learn/signavatar/engine/window"
	"github.com/synapz-learn/signavatar/internal/config"
	"github.com/synapz-learn/signavatar/internal/content"
)

const zoomStep = 0.25

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// ── Content ─────────────────────────────────────────────────────────────
	table, err := content.LoadTable(cfg.TablePath)
	if err != nil {
		return err
	}
	rig := content.LoadRig(cfg.ModelPath, logger)
	if rig == nil {
		logger.Warn("falling back to the built-in rig")
		rig = skeleton.NewMixamoRig()
	}

	// ── Engine + Window ─────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(windowTitle("", "")),
		window.WithWidth(960),
		window.WithHeight(720),
	)
	if err != nil {
		return err
	}
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithTickRate(cfg.TickRate),
		engine.WithLogger(logger),
		engine.WithProfiling(os.Getenv("SIGN_PROFILE") != ""),
	)

	// ── Renderer ────────────────────────────────────────────────────────────
	cam := camera.NewCamera(camera.WithAspect(float32(win.Width()) / float32(max(win.Height(), 1))))
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win, rig,
		renderer.WithCamera(cam),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	// ── Sequencer ───────────────────────────────────────────────────────────
	var caption atomic.Value
	caption.Store("")
	policy := sequencer.ResetNever
	if cfg.ResetOnPreempt {
		policy = sequencer.ResetOnPreempt
	}
	var seq sequencer.Sequencer
	seq = sequencer.NewSequencer(table, rig,
		sequencer.WithStepSize(cfg.StepSize),
		sequencer.WithHold(cfg.Hold),
		sequencer.WithLogger(logger),
		sequencer.WithRenderer(r),
		sequencer.WithCaptionCallback(func(c string) { caption.Store(c) }),
		sequencer.WithStateCallback(func(s sequencer.State) {
			if s != sequencer.StateIdle {
				return
			}
			if d := seq.Diagnostics(); d.Degraded() {
				logger.Warn("sequence finished degraded",
					"missing_joints", d.MissingJoints,
					"missing_properties", d.MissingProperties,
					"malformed", d.Malformed,
				)
			}
		}),
		sequencer.WithPoseReset(pose.NewResetter(), policy),
	)

	var editor lineEditor
	submit := func(text string) {
		seq.ResetDiagnostics()
		report := seq.Submit(text)
		logger.Info("signing",
			"text", text,
			"units", report.Units,
			"preempted", report.Preempted,
			"unmapped_tokens", report.UnmappedTokens,
		)
	}

	// ── Callbacks ───────────────────────────────────────────────────────────
	eng.SetTickCallback(func(dt time.Duration) {
		if seq.Running() {
			seq.Tick(dt)
		}
	})

	drawErrors := 0
	eng.SetRenderCallback(func(dt time.Duration) {
		if err := r.Draw(); err != nil {
			drawErrors++
			if drawErrors == 1 || drawErrors%300 == 0 {
				logger.Error("draw failed", "error", err, "count", drawErrors)
			}
			return
		}
		drawErrors = 0
	})

	eng.SetResizeCallback(func(width, height int) {
		r.Resize(width, height)
	})

	title := ""
	eng.SetUpdateCallback(func() {
		next := windowTitle(caption.Load().(string), editor.String())
		if next != title {
			win.SetTitle(next)
			title = next
		}
	})

	win.SetScrollCallback(func(delta float32) {
		r.Camera().Zoom(delta * zoomStep)
	})
	win.SetCharCallback(editor.insert)
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyEnter:
			if text, ok := editor.commit(); ok {
				submit(text)
			}
		case common.KeyBackspace:
			editor.backspace()
		case common.KeyTab:
			if text, ok := editor.replay(); ok {
				submit(text)
			}
		case common.KeyUp:
			r.Camera().Zoom(zoomStep)
		case common.KeyDown:
			r.Camera().Zoom(-zoomStep)
		}
	})

	// ── Stdin ───────────────────────────────────────────────────────────────
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if text := strings.TrimSpace(sc.Text()); text != "" {
				editor.remember(text)
				submit(text)
			}
		}
	}()

	logger.Info("signview ready", "rig", rig.Name(), "joints", rig.Len(), "tick_rate", cfg.TickRate)
	return eng.Run()
}
