package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/synapz-learn/signavatar/engine/profiler"
	"github.com/synapz-learn/signavatar/engine/window"
)

var (
	errNoWindow       = errors.New("engine has no window; use RunHeadless")
	errAlreadyRunning = errors.New("engine is already running")
)

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window
	clock  clock.Clock
	logger *slog.Logger

	tickProfiler     *profiler.Profiler
	renderProfiler   *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(dt time.Duration)
	renderCallback func(dt time.Duration)
	updateCallback func()
	resizeCallback func(width, height int)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives a frame-based host. A tick goroutine calls the tick callback at a fixed rate
// (this is where a sequencer advances), a render goroutine calls the render callback as fast
// as the frame limit allows, and the window message loop runs on the caller's thread.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	Window() window.Window

	// EnableProfiler enables periodic loop statistics in the log.
	EnableProfiler()

	// DisableProfiler disables loop statistics.
	DisableProfiler()

	// SetTickRate sets the tick rate in ticks per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - hz: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(hz float64)

	// SetTickCallback registers the function called each tick.
	//
	// Parameters:
	//   - callback: function receiving the wall time since the previous tick
	SetTickCallback(callback func(dt time.Duration))

	// SetRenderCallback registers the function called each render frame.
	// A headless engine only starts its render goroutine when a render callback is set.
	//
	// Parameters:
	//   - callback: function receiving the time since the previous frame
	SetRenderCallback(callback func(dt time.Duration))

	// SetUpdateCallback registers a function called on the window thread every message loop
	// iteration. Use it for work that must happen on the window thread.
	//
	// Parameters:
	//   - callback: the function
	SetUpdateCallback(callback func())

	// SetResizeCallback registers the function called when the window framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetRenderFrameLimit sets an optional render frame rate cap.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render goroutines and runs the window message loop on the
	// calling goroutine. It blocks until the window closes or Quit is called.
	//
	// Returns:
	//   - error: errNoWindow without a window, errAlreadyRunning if started twice
	Run() error

	// RunHeadless starts the tick goroutine (and the render goroutine when a render callback
	// is set) and blocks until ctx is cancelled or Quit is called.
	//
	// Parameters:
	//   - ctx: controls the engine lifetime
	//
	// Returns:
	//   - error: errAlreadyRunning if started twice
	RunHeadless(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (tick rate, window, clock, logger)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		clock:           clock.New(),
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	e.tickProfiler = profiler.NewProfiler(e.logger, "tick", 5*time.Second)
	e.renderProfiler = profiler.NewProfiler(e.logger, "render", 5*time.Second)

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.resizeCallback != nil {
				e.resizeCallback(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() error {
	if e.window == nil {
		return errNoWindow
	}
	if !e.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
			return
		default:
		}
		if e.updateCallback != nil {
			e.updateCallback()
		}
	})

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	return nil
}

func (e *engine) RunHeadless(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	e.wg.Add(1)
	go e.handleEngine()
	if e.renderCallback != nil {
		e.wg.Add(1)
		go e.handleRender()
	}

	select {
	case <-ctx.Done():
	case <-e.quitChannel:
	}

	e.signalQuit()
	e.wg.Wait()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop. It listens for rate changes via tickRateChannel
// and exits when the quit channel is closed. A panicking tick callback stops the engine.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastTick := e.clock.Now()
	ticker := e.clock.Ticker(e.engineTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := e.clock.Now()
			dt := now.Sub(lastTick)
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			if e.profilingEnabled.Load() {
				e.tickProfiler.Tick()
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := e.clock.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := e.clock.Now()
		dt := now.Sub(lastRender)
		lastRender = now

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled.Load() {
			e.renderProfiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - e.clock.Since(lastRender); remaining > 0 {
				e.clock.Sleep(remaining)
			}
		}
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetTickRate(hz float64) {
	newRate := tickInterval(hz)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Replace any pending update so the latest rate wins.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(dt time.Duration)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(dt time.Duration)) {
	e.renderCallback = callback
}

func (e *engine) SetUpdateCallback(callback func()) {
	e.updateCallback = callback
}

func (e *engine) SetResizeCallback(callback func(width, height int)) {
	e.resizeCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func tickInterval(hz float64) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Duration(float64(time.Second) / hz)
}
