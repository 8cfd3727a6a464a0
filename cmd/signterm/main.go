// Command signterm signs typed text in the terminal, showing the caption and live joint
// rotations of the avatar rig.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/synapz-learn/signavatar/engine"
	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
	"github.com/synapz-learn/signavatar/internal/config"
	"github.com/synapz-learn/signavatar/internal/content"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	sound   bool
	fps     float64
	logFile string
}

func newRootCommand() *cobra.Command {
	var opt options

	cmd := &cobra.Command{
		Use:          "signterm",
		Short:        "Sign typed text in the terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var logOut io.Writer = io.Discard
			if opt.logFile != "" {
				f, err := os.OpenFile(opt.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			return run(cmd.Context(), cfg, opt, cfg.NewLogger(logOut))
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opt.sound, "sound", false, "play a tone each time a sign is held")
	f.Float64Var(&opt.fps, "fps", 30, "terminal redraws per second")
	f.StringVar(&opt.logFile, "log-file", "", "append logs to this file (the terminal is taken by the view)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, opt options, logger *slog.Logger) error {
	table, err := content.LoadTable(cfg.TablePath)
	if err != nil {
		return err
	}
	rig := content.LoadRig(cfg.ModelPath, logger)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	tone := newCue(opt.sound, logger)
	defer tone.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := newTerminal(screen, table, rig, cfg, tone, logger)

	eng := engine.NewEngine(
		engine.WithTickRate(cfg.TickRate),
		engine.WithRenderFrameLimit(opt.fps),
		engine.WithLogger(logger),
	)
	eng.SetTickCallback(t.tick)
	eng.SetRenderCallback(t.render)

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			if !t.handle(ev) {
				cancel()
				return
			}
		}
	}()

	return eng.RunHeadless(ctx)
}

// terminal owns the sequencer and the line being typed.
type terminal struct {
	screen tcell.Screen
	seq    sequencer.Sequencer
	rig    skeleton.Skeleton
	joints []string
	tone   *cue
	logger *slog.Logger

	mu     sync.Mutex
	input  []rune
	status string
}

func newTerminal(screen tcell.Screen, table signs.Table, rig skeleton.Skeleton, cfg config.Config, tone *cue, logger *slog.Logger) *terminal {
	t := &terminal{
		screen: screen,
		rig:    rig,
		joints: visibleJoints(rig, pose.DefaultJoints),
		tone:   tone,
		logger: logger,
		status: "type text and press Enter, Esc quits",
	}
	policy := sequencer.ResetNever
	if cfg.ResetOnPreempt {
		policy = sequencer.ResetOnPreempt
	}
	t.seq = sequencer.NewSequencer(table, rig,
		sequencer.WithStepSize(cfg.StepSize),
		sequencer.WithHold(cfg.Hold),
		sequencer.WithLogger(logger),
		sequencer.WithStateCallback(t.onState),
		sequencer.WithPoseReset(pose.NewResetter(), policy),
	)
	return t
}

func (t *terminal) onState(s sequencer.State) {
	switch s {
	case sequencer.StateHolding:
		t.tone.play()
	case sequencer.StateIdle:
		d := t.seq.Diagnostics()
		t.setStatus(fmt.Sprintf("done: missing joints %d, malformed %d, unmapped %d",
			d.MissingJoints+d.MissingProperties, d.Malformed, d.UnmappedTokens+d.UnmappedChars))
	}
}

func (t *terminal) tick(dt time.Duration) {
	if t.seq.Running() {
		t.seq.Tick(dt)
	}
}

func (t *terminal) render(time.Duration) {
	width, height := t.screen.Size()

	var current skeleton.Pose
	if t.rig != nil {
		current = t.rig.Snapshot()
	}
	t.mu.Lock()
	s := snapshot{
		state:   t.seq.State(),
		caption: t.seq.Caption(),
		pending: t.seq.Pending(),
		status:  t.status,
		input:   string(t.input),
		pose:    current,
		joints:  t.joints,
	}
	t.mu.Unlock()

	drawView(t.screen, width, height, s)
	t.screen.Show()
}

// handle applies one terminal event and reports whether the program should keep running.
func (t *terminal) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyEnter:
			t.submitInput()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			t.mu.Lock()
			if n := len(t.input); n > 0 {
				t.input = t.input[:n-1]
			}
			t.mu.Unlock()
		case tcell.KeyRune:
			t.mu.Lock()
			t.input = append(t.input, ev.Rune())
			t.mu.Unlock()
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

func (t *terminal) submitInput() {
	t.mu.Lock()
	text := strings.TrimSpace(string(t.input))
	t.input = t.input[:0]
	t.mu.Unlock()
	if text == "" {
		return
	}

	t.seq.ResetDiagnostics()
	report := t.seq.Submit(text)
	status := fmt.Sprintf("signing %d units", report.Units)
	if n := len(report.UnmappedTokens) + len(report.UnmappedChars); n > 0 {
		status += fmt.Sprintf(", %d unmapped", n)
	}
	if report.Preempted {
		status += ", previous sequence cut short"
	}
	t.setStatus(status)
	t.logger.Info("signing", "text", text, "units", report.Units, "preempted", report.Preempted)
}

func (t *terminal) setStatus(s string) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}
