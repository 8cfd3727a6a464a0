package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Profiler tracks loop rate and memory statistics and logs them at a fixed interval.
// It is not safe for concurrent use; each loop owns its own profiler.
type Profiler struct {
	logger   *slog.Logger
	loop     string
	interval time.Duration
	now      func() time.Time

	count          int
	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler for one loop.
//
// Parameters:
//   - logger: destination for stats; nil uses slog.Default()
//   - loop: loop name attached to every record, e.g. "tick" or "render"
//   - interval: reporting interval; values <= 0 default to one second
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger, loop string, interval time.Duration) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		logger:   logger,
		loop:     loop,
		interval: interval,
		now:      time.Now,
		lastTime: time.Now(),
	}
}

// Tick should be called once per loop iteration.
// When the interval has elapsed it logs the iteration rate, heap usage, allocation rate
// and GC pauses at Debug level.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.count++
	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.interval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	gcCount := p.memStats.NumGC

	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			maxPause = max(maxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.logger.Debug("loop stats",
		"loop", p.loop,
		"rate_hz", float64(p.count)/elapsed.Seconds(),
		"heap_mb", float64(p.memStats.Alloc)/1024/1024,
		"alloc_mb_s", float64(allocDelta)/1024/1024/elapsed.Seconds(),
		"gc", gcCount,
		"gc_last", lastPause,
		"gc_max", maxPause,
		"sys_mb", float64(p.memStats.Sys)/1024/1024,
	)

	p.count = 0
	p.lastTime = current
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
