package bake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

const (
	DefaultFrameRate = 60.0
	DefaultMaxFrames = 60 * 60 * 5
)

var (
	errNilRig = errors.New("bake requires a rig")
	errClosed = errors.New("baker is closed")
)

type bakerImpl struct {
	table     signs.Table
	rig       skeleton.Skeleton
	logger    *slog.Logger
	frameRate float64
	maxFrames int
	workers   int
	seqOpts   []sequencer.SequencerBuilderOption

	pool   worker.DynamicWorkerPool
	mu     sync.RWMutex
	closed bool
}

// Baker renders texts into frame timelines without a window or wall clock.
type Baker interface {
	// Bake plays every job on its own copy of the rig with synthetic fixed ticks until the
	// sequencer goes idle or the frame cap is reached. Jobs run concurrently; the result order
	// matches the job order.
	//
	// Parameters:
	//   - ctx: cancels jobs between frames
	//   - jobs: the texts to bake
	//
	// Returns:
	//   - []Timeline: one timeline per job, partial for jobs interrupted by ctx
	//   - error: the joined job errors, nil when every job finished
	Bake(ctx context.Context, jobs []Job) ([]Timeline, error)

	// Close stops the worker pool. Bake fails with errClosed afterwards.
	// Safe to call more than once.
	Close()
}

var _ Baker = &bakerImpl{}

// NewBaker creates a Baker over a sign table and a template rig. The template is cloned per job
// and never modified.
//
// Parameters:
//   - table: the bone animation table
//   - rig: the template rig
//   - options: functional options
//
// Returns:
//   - Baker: the baker
//   - error: errNilRig when rig is nil
func NewBaker(table signs.Table, rig skeleton.Skeleton, options ...BakerBuilderOption) (Baker, error) {
	if rig == nil {
		return nil, errNilRig
	}
	b := &bakerImpl{
		table:     table,
		rig:       rig,
		logger:    slog.Default(),
		frameRate: DefaultFrameRate,
		maxFrames: DefaultMaxFrames,
		workers:   4,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.frameRate <= 0 {
		b.frameRate = DefaultFrameRate
	}
	if b.maxFrames <= 0 {
		b.maxFrames = DefaultMaxFrames
	}
	if b.workers <= 0 {
		b.workers = 1
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b, nil
}

func (b *bakerImpl) Bake(ctx context.Context, jobs []Job) ([]Timeline, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, errClosed
	}

	out := make([]Timeline, len(jobs))
	errs := make([]error, len(jobs))

	// The pool outlives a call, so completion is tracked per call.
	var wg sync.WaitGroup
	for i, job := range jobs {
		if job.ID == "" {
			job.ID = strconv.Itoa(i)
		}
		wg.Add(1)
		idx, j := i, job
		b.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				tl, err := b.bakeOne(ctx, j)
				out[idx] = tl
				if err != nil {
					errs[idx] = fmt.Errorf("job %s: %w", j.ID, err)
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	return out, errors.Join(errs...)
}

func (b *bakerImpl) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.pool.Stop()
}

func (b *bakerImpl) bakeOne(ctx context.Context, job Job) (Timeline, error) {
	rig := b.rig.Clone()
	dt := time.Duration(float64(time.Second) / b.frameRate)

	opts := append([]sequencer.SequencerBuilderOption{sequencer.WithLogger(b.logger)}, b.seqOpts...)
	seq := sequencer.NewSequencer(b.table, rig, opts...)

	tl := Timeline{
		ID:        job.ID,
		Text:      job.Text,
		Rig:       rig.Name(),
		FrameRate: b.frameRate,
	}
	tl.Report = seq.Submit(job.Text)
	rig.Changed()

	var err error
	for i := 0; ; i++ {
		if i == b.maxFrames {
			tl.Truncated = true
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		state := seq.Tick(dt)
		if state == sequencer.StateIdle {
			break
		}
		tl.Frames = append(tl.Frames, Frame{
			Index:   i,
			AtMS:    (dt * time.Duration(i+1)).Milliseconds(),
			State:   state.String(),
			Caption: seq.Caption(),
			Joints:  rig.Changed(),
		})
	}

	tl.Caption = seq.Caption()
	tl.Diagnostics = seq.Diagnostics()
	b.logger.Debug("timeline baked",
		"id", job.ID,
		"frames", len(tl.Frames),
		"truncated", tl.Truncated,
		"degraded", tl.Diagnostics.Degraded(),
	)
	return tl, err
}
