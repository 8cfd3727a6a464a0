// Command signbake plays texts offline and writes their frame timelines as JSON.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/synapz-learn/signavatar/engine/bake"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/internal/config"
	"github.com/synapz-learn/signavatar/internal/content"
	"github.com/synapz-learn/signavatar/internal/gloss"
)

var errNoRig = errors.New("no avatar rig available")

type options struct {
	output    string
	frameRate float64
	maxFrames int
	workers   int
	stepSize  float32
	hold      time.Duration
	gloss     bool
	summary   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opt options

	cmd := &cobra.Command{
		Use:   "signbake [file]",
		Short: "Bake sign animation timelines for lines of text",
		Long: "signbake reads one text per line from a file or stdin, plays each through the sign\n" +
			"sequencer with fixed synthetic ticks and writes the resulting timelines as JSON.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("step") {
				opt.stepSize = cfg.StepSize
			}
			if !flags.Changed("hold") {
				opt.hold = cfg.Hold
			}
			if !flags.Changed("frame-rate") {
				opt.frameRate = cfg.TickRate
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			out := cmd.OutOrStdout()
			if opt.output != "" {
				f, err := os.Create(opt.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			logger := cfg.NewLogger(cmd.ErrOrStderr())
			return runBake(cmd.Context(), cfg, opt, in, out, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opt.output, "output", "o", "", "write JSON to this file instead of stdout")
	f.Float64Var(&opt.frameRate, "frame-rate", bake.DefaultFrameRate, "synthetic ticks per second (default SIGN_TICK_RATE)")
	f.IntVar(&opt.maxFrames, "max-frames", bake.DefaultMaxFrames, "frame cap per text")
	f.IntVar(&opt.workers, "workers", 4, "texts baked concurrently")
	f.Float32Var(&opt.stepSize, "step", sequencer.DefaultStepSize, "rotation step per frame in radians (default SIGN_STEP_SIZE)")
	f.DurationVar(&opt.hold, "hold", sequencer.DefaultHold, "pause after each phase (default SIGN_HOLD)")
	f.BoolVar(&opt.gloss, "gloss", false, "rewrite each line into sign gloss before baking")
	f.BoolVar(&opt.summary, "summary", false, "print one summary line per text to stderr")
	return cmd
}

func runBake(ctx context.Context, cfg config.Config, opt options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	table, err := content.LoadTable(cfg.TablePath)
	if err != nil {
		return err
	}
	rig := content.LoadRig(cfg.ModelPath, logger)
	if rig == nil {
		return errNoRig
	}

	jobs, err := readJobs(in)
	if err != nil {
		return err
	}
	if opt.gloss {
		if err := glossJobs(ctx, cfg, jobs, logger); err != nil {
			return err
		}
	}

	baker, err := bake.NewBaker(table, rig,
		bake.WithLogger(logger),
		bake.WithFrameRate(opt.frameRate),
		bake.WithMaxFrames(opt.maxFrames),
		bake.WithWorkers(opt.workers),
		bake.WithSequencerOptions(
			sequencer.WithStepSize(opt.stepSize),
			sequencer.WithHold(opt.hold),
		),
	)
	if err != nil {
		return err
	}
	defer baker.Close()

	timelines, bakeErr := baker.Bake(ctx, jobs)
	if err := bake.WriteJSON(out, timelines); err != nil {
		return err
	}
	if opt.summary {
		for _, tl := range timelines {
			logger.Info("baked",
				"id", tl.ID,
				"caption", strings.TrimSpace(tl.Caption),
				"frames", len(tl.Frames),
				"duration_ms", tl.DurationMS(),
				"truncated", tl.Truncated,
				"degraded", tl.Diagnostics.Degraded(),
			)
		}
	}
	return bakeErr
}

// readJobs turns every non-blank line into a job numbered by its line.
func readJobs(r io.Reader) ([]bake.Job, error) {
	var jobs []bake.Job
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		jobs = append(jobs, bake.Job{ID: fmt.Sprintf("line-%d", line), Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return jobs, nil
}

func glossJobs(ctx context.Context, cfg config.Config, jobs []bake.Job, logger *slog.Logger) error {
	var g gloss.Glosser = gloss.Passthrough{}
	if cfg.GeminiAPIKey != "" {
		gem, err := gloss.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GlossModel)
		if err != nil {
			return err
		}
		g = gloss.WithFallback(gem, gloss.Passthrough{}, logger)
	}
	for i := range jobs {
		out, err := g.Gloss(ctx, jobs[i].Text)
		if err != nil {
			return fmt.Errorf("gloss %s: %w", jobs[i].ID, err)
		}
		jobs[i].Text = out
	}
	return nil
}
